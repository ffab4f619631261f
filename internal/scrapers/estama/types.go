package estama

type Credentials struct {
	Mail     string
	Password string
}

type Dashboard struct {
	ShopName       string   `json:"shop_name"`
	ShopNumber     string   `json:"shop_number"`
	Plan           string   `json:"plan"`
	ContractPeriod string   `json:"contract_period"`
	Points         string   `json:"points"`
	Notifications  []string `json:"notifications"`
}

const (
	StatusAvailable = "◎ 今すぐご案内可"
	StatusClosed    = "✕ ご案内終了"
	StatusAccepting = "○ 受付中"
	StatusUnknown   = "不明"
)

type GuidanceStatus struct {
	Status     string   `json:"status"`
	Therapists []string `json:"therapists"`
}

type ScheduleText struct {
	ScheduleText string `json:"schedule_text"`
}

type NewsItem struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}
