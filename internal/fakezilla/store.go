package fakezilla

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

const timeLayout = "2006-01-02T15:04:05Z"

// User is an account known to the fake server.
type User struct {
	ID       int
	Login    string
	RealName string
	Password string
	APIKey   string
}

type userRecord struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
}

func (u User) record() userRecord { return userRecord{ID: u.ID, Name: u.Login, RealName: u.RealName} }

type bugRecord struct {
	Alias               []string     `json:"alias"`
	AssignedTo          string       `json:"assigned_to"`
	AssignedToDetail    userRecord   `json:"assigned_to_detail"`
	Blocks              []int        `json:"blocks"`
	CC                  []string     `json:"cc"`
	CCDetail            []userRecord `json:"cc_detail"`
	Classification      string       `json:"classification"`
	Component           string       `json:"component"`
	CreationTime        string       `json:"creation_time"`
	Creator             string       `json:"creator"`
	CreatorDetail       userRecord   `json:"creator_detail"`
	DependsOn           []int        `json:"depends_on"`
	DupeOf              *int         `json:"dupe_of"`
	Flags               []any        `json:"flags"`
	Groups              []string     `json:"groups"`
	ID                  int          `json:"id"`
	IsCCAccessible      bool         `json:"is_cc_accessible"`
	IsConfirmed         bool         `json:"is_confirmed"`
	IsOpen              bool         `json:"is_open"`
	IsCreatorAccessible bool         `json:"is_creator_accessible"`
	Keywords            []string     `json:"keywords"`
	LastChangeTime      string       `json:"last_change_time"`
	OpSys               string       `json:"op_sys"`
	Platform            string       `json:"platform"`
	Priority            string       `json:"priority"`
	Product             string       `json:"product"`
	QAContact           string       `json:"qa_contact"`
	Resolution          string       `json:"resolution"`
	SeeAlso             []string     `json:"see_also"`
	Severity            string       `json:"severity"`
	Status              string       `json:"status"`
	Summary             string       `json:"summary"`
	TargetMilestone     string       `json:"target_milestone"`
	URL                 string       `json:"url"`
	Version             string       `json:"version"`
	Whiteboard          string       `json:"whiteboard"`

	history []historyRecord
}

type changeRecord struct {
	FieldName    string `json:"field_name"`
	Removed      string `json:"removed"`
	Added        string `json:"added"`
	AttachmentID *int   `json:"attachment_id,omitempty"`
}

type historyRecord struct {
	When    string         `json:"when"`
	Who     string         `json:"who"`
	Changes []changeRecord `json:"changes"`
}

type fieldChange struct {
	Added   string `json:"added"`
	Removed string `json:"removed"`
}

type commentRecord struct {
	AttachmentID *int     `json:"attachment_id"`
	BugID        int      `json:"bug_id"`
	Count        int      `json:"count"`
	CreationTime string   `json:"creation_time"`
	Creator      string   `json:"creator"`
	ID           int      `json:"id"`
	IsPrivate    bool     `json:"is_private"`
	Tags         []string `json:"tags"`
	Text         string   `json:"text"`
	Time         string   `json:"time"`
}

type attachmentRecord struct {
	BugID          int    `json:"bug_id"`
	ContentType    string `json:"content_type"`
	CreationTime   string `json:"creation_time"`
	Creator        string `json:"creator"`
	Data           []byte `json:"data"`
	FileName       string `json:"file_name"`
	Flags          []any  `json:"flags"`
	ID             int    `json:"id"`
	IsObsolete     bool   `json:"is_obsolete"`
	IsPatch        bool   `json:"is_patch"`
	IsPrivate      bool   `json:"is_private"`
	LastChangeTime string `json:"last_change_time"`
	Size           int    `json:"size"`
	Summary        string `json:"summary"`
}

// field returns the searchable string form of a bug field.
func (b *bugRecord) field(name string) (string, bool) {
	switch name {
	case "id":
		return strconv.Itoa(b.ID), true
	case "product":
		return b.Product, true
	case "component":
		return b.Component, true
	case "summary":
		return b.Summary, true
	case "severity":
		return b.Severity, true
	case "priority":
		return b.Priority, true
	case "status":
		return b.Status, true
	case "resolution":
		return b.Resolution, true
	case "creator":
		return b.Creator, true
	case "assigned_to":
		return b.AssignedTo, true
	case "version":
		return b.Version, true
	case "op_sys":
		return b.OpSys, true
	case "platform":
		return b.Platform, true
	case "whiteboard":
		return b.Whiteboard, true
	}
	return "", false
}

// setField assigns a scalar field and reports the previous value.
func (b *bugRecord) setField(name, v string) (string, bool) {
	var dst *string
	switch name {
	case "product":
		dst = &b.Product
	case "component":
		dst = &b.Component
	case "summary":
		dst = &b.Summary
	case "severity":
		dst = &b.Severity
	case "priority":
		dst = &b.Priority
	case "status":
		dst = &b.Status
	case "resolution":
		dst = &b.Resolution
	case "assigned_to":
		dst = &b.AssignedTo
	case "version":
		dst = &b.Version
	case "op_sys":
		dst = &b.OpSys
	case "platform":
		dst = &b.Platform
	case "target_milestone":
		dst = &b.TargetMilestone
	case "whiteboard":
		dst = &b.Whiteboard
	case "url":
		dst = &b.URL
	default:
		return "", false
	}
	old := *dst
	*dst = v
	return old, true
}

func (b *bugRecord) open() bool {
	switch b.Status {
	case "RESOLVED", "VERIFIED", "CLOSED":
		return false
	}
	return true
}

type idSet struct {
	Add    []int `json:"add"`
	Remove []int `json:"remove"`
	Set    []int `json:"set"`
}

// apply edits ids and returns the added and removed members.
func (s idSet) apply(ids []int) (out, added, removed []int) {
	out = slices.Clone(ids)
	if s.Set != nil {
		for _, id := range s.Set {
			if !slices.Contains(ids, id) {
				added = append(added, id)
			}
		}
		for _, id := range ids {
			if !slices.Contains(s.Set, id) {
				removed = append(removed, id)
			}
		}
		out = slices.Clone(s.Set)
	}
	for _, id := range s.Add {
		if !slices.Contains(out, id) {
			out = append(out, id)
			added = append(added, id)
		}
	}
	for _, id := range s.Remove {
		if i := slices.Index(out, id); i >= 0 {
			out = slices.Delete(out, i, i+1)
			removed = append(removed, id)
		}
	}
	slices.Sort(out)
	if out == nil {
		out = []int{}
	}
	return out, added, removed
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

func format(t time.Time) string { return t.UTC().Format(timeLayout) }
