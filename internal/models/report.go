package models

// ===========================================
// REPORT
// ===========================================

// ReportedAd is an AdDetail joined back to the attribution candidate that
// produced it. Only the identifier, names and timestamp survive into the
// report; originating IPs and user agents are deliberately dropped here.
type ReportedAd struct {
	AdDetail
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// ReportCustomer is one merged customer entry in the final report.
type ReportCustomer struct {
	Email          string       `json:"email"`
	LowerCaseEmail string       `json:"lower_case_email"`
	Cart           []LineItem   `json:"cart"`
	Stats          OrderStats   `json:"stats"`
	Ads            []ReportedAd `json:"ads"`
}

// Report is the terminal artifact of one attribution run. It is never
// mutated after assembly. An empty Customers map is a valid outcome
// meaning no attributable revenue in the window.
type Report struct {
	Date      string                     `json:"date"`
	UserID    string                     `json:"user_id"`
	Customers map[string]*ReportCustomer `json:"customers"`
}
