package model

// Manifest is the machine-readable description stored as report.json inside
// an archive.
type Manifest struct {
	ExportDate  string        `json:"exportDate"`
	TotalIssues int           `json:"totalIssues"`
	OpenIssues  int           `json:"openIssues"`
	DoneIssues  int           `json:"doneIssues"`
	Rooms       []Room        `json:"rooms"`
	Assignees   []Assignee    `json:"assignees"`
	Issues      []IssueExport `json:"issues"`
}

// IssueExport is one issue entry of the manifest. Code, AssigneeSlug and
// Type are always written, possibly empty, so older readers never meet an
// absent key they did not expect.
type IssueExport struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	RoomSlug     string        `json:"roomSlug"`
	RoomName     string        `json:"roomName"`
	AssigneeSlug string        `json:"assigneeSlug"`
	Type         string        `json:"type"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       string        `json:"status"`
	CreatedAt    string        `json:"createdAt"`
	UpdatedAt    string        `json:"updatedAt"`
	PhotoCount   int           `json:"photoCount"`
	Photos       []PhotoDetail `json:"photos"`
}

// PhotoDetail describes one exported photo and the archive paths of its
// full image and thumbnail.
type PhotoDetail struct {
	Path          string `json:"path"`
	ID            string `json:"id"`
	MIMEType      string `json:"mimeType"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ThumbnailPath string `json:"thumbnailPath"`
	CreatedAt     string `json:"createdAt"`
}
