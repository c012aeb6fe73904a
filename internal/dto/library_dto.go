package dto

import "angelamos-operations/pkg/studio"

type ScheduledPostsResponse struct {
	Posts   []studio.ScheduledPost `json:"posts"`
	Pending int                    `json:"pending"`
}

type AccountsResponse struct {
	Accounts []studio.ConnectedAccount `json:"accounts"`
	Pending  int                       `json:"pending"`
}

type NotesResponse struct {
	Folders []studio.NoteFolder `json:"folders"`
	Notes   []studio.Note       `json:"notes"`
	Pending int                 `json:"pending"`
}
