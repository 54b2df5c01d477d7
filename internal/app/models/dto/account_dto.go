package dto

// StudentAccountResponse lists a student account for administrators
type StudentAccountResponse struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	RealName   string  `json:"real_name"`
	StudentID  *string `json:"student_id"`
	Department *string `json:"department"`
	Grade      *int    `json:"grade"`
}

// TeacherAccountResponse lists a teacher account for administrators
type TeacherAccountResponse struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	RealName string  `json:"real_name"`
	Office   *string `json:"office"`
	Title    *string `json:"title"`
}

// UpdateStudentRequest carries the fields an administrator may change; nil
// fields are left untouched.
type UpdateStudentRequest struct {
	RealName   *string `json:"real_name" binding:"omitempty,min=1,max=100"`
	StudentID  *string `json:"student_id" binding:"omitempty,min=1,max=20"`
	Department *string `json:"department"`
	Grade      *int    `json:"grade" binding:"omitempty,min=1,max=4"`
}

// UpdateTeacherRequest carries the fields an administrator may change; nil
// fields are left untouched.
type UpdateTeacherRequest struct {
	RealName *string `json:"real_name" binding:"omitempty,min=1,max=100"`
	Office   *string `json:"office"`
	Title    *string `json:"title"`
}
