package main

import "portalbot-backend/cmd/portal-cli/cmd"

func main() {
	cmd.Execute()
}
