package bugzilla

import "time"

// User is a Bugzilla account as embedded in bugs and returned by whoami.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
}

// Flag is a flag set on a bug or an attachment.
type Flag struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	TypeID           int       `json:"type_id"`
	CreationDate     time.Time `json:"creation_date"`
	ModificationDate time.Time `json:"modification_date"`
	Status           string    `json:"status"`
	Setter           string    `json:"setter"`
	Requestee        *string   `json:"requestee,omitempty"`
}

// Bug is a bug as returned by the bug endpoints. When a query projects a
// subset of fields, the others keep their zero value.
type Bug struct {
	Alias               []string  `json:"alias"`
	AssignedTo          string    `json:"assigned_to"`
	AssignedToDetail    User      `json:"assigned_to_detail"`
	Blocks              []int     `json:"blocks"`
	CC                  []string  `json:"cc"`
	CCDetail            []User    `json:"cc_detail"`
	Classification      string    `json:"classification"`
	Component           string    `json:"component"`
	CreationTime        time.Time `json:"creation_time"`
	Creator             string    `json:"creator"`
	CreatorDetail       User      `json:"creator_detail"`
	DependsOn           []int     `json:"depends_on"`
	DupeOf              *int      `json:"dupe_of"`
	Flags               []Flag    `json:"flags"`
	Groups              []string  `json:"groups"`
	ID                  int       `json:"id"`
	IsCCAccessible      bool      `json:"is_cc_accessible"`
	IsConfirmed         bool      `json:"is_confirmed"`
	IsOpen              bool      `json:"is_open"`
	IsCreatorAccessible bool      `json:"is_creator_accessible"`
	Keywords            []string  `json:"keywords"`
	LastChangeTime      time.Time `json:"last_change_time"`
	OpSys               string    `json:"op_sys"`
	Platform            string    `json:"platform"`
	Priority            string    `json:"priority"`
	Product             string    `json:"product"`
	QAContact           string    `json:"qa_contact"`
	QAContactDetail     []User    `json:"qa_contact_detail,omitempty"`
	Resolution          string    `json:"resolution"`
	SeeAlso             []string  `json:"see_also"`
	Severity            string    `json:"severity"`
	Status              string    `json:"status"`
	Summary             string    `json:"summary"`
	TargetMilestone     string    `json:"target_milestone"`
	UpdateToken         *string   `json:"update_token,omitempty"`
	URL                 string    `json:"url"`
	Version             string    `json:"version"`
	Whiteboard          string    `json:"whiteboard"`
}

// Change is one field change of a history entry.
type Change struct {
	FieldName    string `json:"field_name"`
	Removed      string `json:"removed"`
	Added        string `json:"added"`
	AttachmentID *int   `json:"attachment_id,omitempty"`
}

// History is one set of changes made by a user at one time.
type History struct {
	When    time.Time `json:"when"`
	Who     string    `json:"who"`
	Changes []Change  `json:"changes"`
}

// BugHistory is the history of one bug.
type BugHistory struct {
	ID      int       `json:"id"`
	Alias   []string  `json:"alias"`
	History []History `json:"history"`
}

// FieldChange is the before/after value of a field in an update result.
type FieldChange struct {
	Added   string `json:"added"`
	Removed string `json:"removed"`
}

// UpdatedBug reports the outcome of an update for one bug.
type UpdatedBug struct {
	ID             int                    `json:"id"`
	Alias          []string               `json:"alias"`
	LastChangeTime time.Time              `json:"last_change_time"`
	Changes        map[string]FieldChange `json:"changes"`
}

// Comment is a comment on a bug. Count is its position on the bug, 0 being
// the description.
type Comment struct {
	AttachmentID *int      `json:"attachment_id"`
	BugID        int       `json:"bug_id"`
	Count        int       `json:"count"`
	CreationTime time.Time `json:"creation_time"`
	Creator      string    `json:"creator"`
	ID           int       `json:"id"`
	IsPrivate    bool      `json:"is_private"`
	Tags         []string  `json:"tags"`
	Text         string    `json:"text"`
	Time         time.Time `json:"time"`
}

// Attachment is a file attached to a bug. Data holds the decoded content.
type Attachment struct {
	BugID          int       `json:"bug_id"`
	ContentType    string    `json:"content_type"`
	CreationTime   time.Time `json:"creation_time"`
	Creator        string    `json:"creator"`
	Data           []byte    `json:"data"`
	FileName       string    `json:"file_name"`
	Flags          []Flag    `json:"flags"`
	ID             int       `json:"id"`
	IsObsolete     bool      `json:"is_obsolete"`
	IsPatch        bool      `json:"is_patch"`
	IsPrivate      bool      `json:"is_private"`
	LastChangeTime time.Time `json:"last_change_time"`
	Size           int       `json:"size"`
	Summary        string    `json:"summary"`
}

// UpdatedAttachment reports the outcome of an update for one attachment.
type UpdatedAttachment struct {
	ID             int                    `json:"id"`
	LastChangeTime time.Time              `json:"last_change_time"`
	Changes        map[string]FieldChange `json:"changes"`
}
