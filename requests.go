package bugzilla

// CreateBugRequest is the body of POST bug. Product, Component, Summary and
// Version are required by the server.
type CreateBugRequest struct {
	Product          string       `json:"product"`
	Component        string       `json:"component"`
	Summary          string       `json:"summary"`
	Version          string       `json:"version"`
	Description      string       `json:"description,omitempty"`
	OpSys            string       `json:"op_sys,omitempty"`
	Platform         string       `json:"platform,omitempty"`
	Priority         string       `json:"priority,omitempty"`
	Severity         string       `json:"severity,omitempty"`
	Alias            []string     `json:"alias,omitempty"`
	AssignedTo       string       `json:"assigned_to,omitempty"`
	CC               []string     `json:"cc,omitempty"`
	CommentIsPrivate bool         `json:"comment_is_private,omitempty"`
	Groups           []string     `json:"groups,omitempty"`
	QAContact        string       `json:"qa_contact,omitempty"`
	Status           string       `json:"status,omitempty"`
	Resolution       string       `json:"resolution,omitempty"`
	TargetMilestone  string       `json:"target_milestone,omitempty"`
	Keywords         []string     `json:"keywords,omitempty"`
	Flags            []FlagChange `json:"flags,omitempty"`
}

// IDSetUpdate edits a list of bug ids: Set replaces the list, Add and Remove
// edit it.
type IDSetUpdate struct {
	Add    []int `json:"add,omitempty"`
	Remove []int `json:"remove,omitempty"`
	Set    []int `json:"set,omitempty"`
}

// StringSetUpdate is IDSetUpdate for string lists such as cc or keywords.
type StringSetUpdate struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
	Set    []string `json:"set,omitempty"`
}

// CommentBody is a comment added as part of an update.
type CommentBody struct {
	Comment   string `json:"comment"`
	IsPrivate bool   `json:"is_private"`
}

// FlagChange sets, requests or clears a flag.
type FlagChange struct {
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	TypeID    int    `json:"type_id,omitempty"`
	Status    string `json:"status"`
	Requestee string `json:"requestee,omitempty"`
	New       bool   `json:"new,omitempty"`
}

// UpdateBugRequest is the body of PUT bug/{id}. Without IDs only the bug in
// the path is updated.
type UpdateBugRequest struct {
	IDs             []int            `json:"ids,omitempty"`
	Alias           *StringSetUpdate `json:"alias,omitempty"`
	AssignedTo      string           `json:"assigned_to,omitempty"`
	Blocks          *IDSetUpdate     `json:"blocks,omitempty"`
	DependsOn       *IDSetUpdate     `json:"depends_on,omitempty"`
	CC              *StringSetUpdate `json:"cc,omitempty"`
	Keywords        *StringSetUpdate `json:"keywords,omitempty"`
	Comment         *CommentBody     `json:"comment,omitempty"`
	Component       string           `json:"component,omitempty"`
	DupeOf          *int             `json:"dupe_of,omitempty"`
	OpSys           string           `json:"op_sys,omitempty"`
	Platform        string           `json:"platform,omitempty"`
	Priority        string           `json:"priority,omitempty"`
	Product         string           `json:"product,omitempty"`
	Resolution      string           `json:"resolution,omitempty"`
	Severity        string           `json:"severity,omitempty"`
	Status          string           `json:"status,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	TargetMilestone string           `json:"target_milestone,omitempty"`
	URL             string           `json:"url,omitempty"`
	Version         string           `json:"version,omitempty"`
	Whiteboard      string           `json:"whiteboard,omitempty"`
	Flags           []FlagChange     `json:"flags,omitempty"`
}

// CommentOptions tune CreateComment.
type CommentOptions struct {
	IsPrivate bool    `json:"is_private"`
	WorkTime  float64 `json:"work_time,omitempty"`
}

type createCommentBody struct {
	Comment string `json:"comment"`
	CommentOptions
}

// CreateAttachmentRequest is the body of POST bug/{id}/attachment. Data is
// sent base64 encoded. IDs attaches the same file to several bugs.
type CreateAttachmentRequest struct {
	IDs         []int        `json:"ids,omitempty"`
	Data        []byte       `json:"data"`
	FileName    string       `json:"file_name"`
	Summary     string       `json:"summary"`
	ContentType string       `json:"content_type,omitempty"`
	Comment     string       `json:"comment,omitempty"`
	IsPatch     bool         `json:"is_patch,omitempty"`
	IsPrivate   bool         `json:"is_private,omitempty"`
	Flags       []FlagChange `json:"flags,omitempty"`
}

// UpdateAttachmentRequest is the body of PUT bug/attachment/{id}.
type UpdateAttachmentRequest struct {
	IDs         []int        `json:"ids,omitempty"`
	FileName    string       `json:"file_name,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Comment     string       `json:"comment,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	IsPatch     *bool        `json:"is_patch,omitempty"`
	IsPrivate   *bool        `json:"is_private,omitempty"`
	IsObsolete  *bool        `json:"is_obsolete,omitempty"`
	Flags       []FlagChange `json:"flags,omitempty"`
}
