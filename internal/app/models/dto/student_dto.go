package dto

// CreditBuckets sums credits by course type. General covers both general
// education types.
type CreditBuckets struct {
	General  int `json:"general" example:"4"`
	Elective int `json:"elective" example:"6"`
	Required int `json:"required" example:"12"`
	All      int `json:"all" example:"22"`
}

// Add accumulates credits into the bucket matching courseType.
func (b *CreditBuckets) Add(courseType string, credits int) {
	switch courseType {
	case "general_required", "general_elective":
		b.General += credits
	case "elective":
		b.Elective += credits
	case "required":
		b.Required += credits
	default:
		return
	}
	b.All += credits
}

// CreditUserInfo identifies the student the summary belongs to.
type CreditUserInfo struct {
	RealName   string `json:"real_name" example:"Lin Mei"`
	StudentID  string `json:"student_id" example:"B11234567"`
	Department string `json:"department" example:"Computer Science"`
	Grade      string `json:"grade" example:"3"`
}

// CreditSummaryResponse is returned by GET /user/credit-summary.
type CreditSummaryResponse struct {
	UserInfo        CreditUserInfo `json:"user_info"`
	TotalCredits    CreditBuckets  `json:"total_credits"`
	SemesterCredits CreditBuckets  `json:"semester_credits"`
}
