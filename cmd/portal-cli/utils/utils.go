package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"portalbot-backend/cmd/portal-cli/globals"
	"portalbot-backend/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func Fatal(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

// Print writes a result as indented JSON when --json is given and with render
// otherwise, a failed result exits with status 1.
func Print[T any](res service.Result[T], render func(T)) {
	if globals.JSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			Fatal(err)
		}
		fmt.Println(string(out))
		if !res.OK() {
			os.Exit(1)
		}
		return
	}
	if !res.OK() {
		fmt.Fprintln(os.Stderr, res.Err)
		os.Exit(1)
	}
	render(res.Value)
}

// PrintText prints a block of portal text with a title line.
func PrintText(title, text string) {
	fmt.Printf("== %s ==\n%s\n", title, text)
}

// ListTable renders one column of strings.
func ListTable(header string, values []string) {
	t := NewTable()
	t.AppendHeader(table.Row{"#", header})
	for i, v := range values {
		t.AppendRow(table.Row{i + 1, v})
	}
	t.Render()
}
