package fakezilla

import (
	"cmp"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/reoring/gobugzilla/internal/wire"
)

var searchParams = []string{"product", "component", "summary", "severity", "priority", "status", "resolution", "creator", "assigned_to", "version", "op_sys", "platform", "whiteboard"}

func (s *Server) searchBugs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, err := queryIDs(q["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, 54, err.Error())
		return
	}

	s.mu.Lock()
	var found []*bugRecord
	for _, id := range ids {
		b, ok := s.bugs[id]
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, 101, fmt.Sprintf("Bug #%d does not exist.", id))
			return
		}
		found = append(found, b)
	}
	if len(ids) == 0 {
		for _, id := range sortedKeys(s.bugs) {
			found = append(found, s.bugs[id])
		}
	}
	out := make([]any, 0, len(found))
	for _, b := range found {
		if !matchQuicksearch(b, q.Get("quicksearch")) || !matchParams(b, q) {
			continue
		}
		m, err := project(b, q.Get("include_fields"), q.Get("exclude_fields"))
		if err != nil {
			s.mu.Unlock()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out = append(out, m)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"bugs": out, "faults": []any{}})
}

func queryIDs(vals []string) ([]int, error) {
	var ids []int
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("Invalid bug id %q.", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// matchQuicksearch supports ALL, OPEN, field:value terms and bare words
// matched against the summary.
func matchQuicksearch(b *bugRecord, qs string) bool {
	for _, term := range strings.Fields(qs) {
		switch {
		case term == "ALL":
		case term == "OPEN":
			if !b.open() {
				return false
			}
		case strings.Contains(term, ":"):
			name, want, _ := strings.Cut(term, ":")
			got, ok := b.field(name)
			if !ok || !strings.EqualFold(got, want) {
				return false
			}
		default:
			if !strings.Contains(strings.ToLower(b.Summary), strings.ToLower(term)) {
				return false
			}
		}
	}
	return true
}

func matchParams(b *bugRecord, q url.Values) bool {
	for _, name := range searchParams {
		want, ok := q[name]
		if !ok {
			continue
		}
		got, _ := b.field(name)
		if name == "summary" {
			if !strings.Contains(strings.ToLower(got), strings.ToLower(want[0])) {
				return false
			}
			continue
		}
		if !slices.Contains(want, got) {
			return false
		}
	}
	return true
}

// project renders b the way the server does for include_fields and
// exclude_fields.
func project(v any, include, exclude string) (map[string]any, error) {
	b, err := wire.Marshal(v)
	if err != nil {
		return nil, err
	}
	raw, err := wire.DecodeBytes(b)
	if err != nil {
		return nil, err
	}
	m := raw.(map[string]any)
	if include != "" {
		keep := strings.Split(include, ",")
		for k := range m {
			if !slices.Contains(keep, k) {
				delete(m, k)
			}
		}
	}
	if exclude != "" {
		for _, k := range strings.Split(exclude, ",") {
			delete(m, k)
		}
	}
	return m, nil
}

type createBugBody struct {
	Product         string   `json:"product"`
	Component       string   `json:"component"`
	Summary         string   `json:"summary"`
	Version         string   `json:"version"`
	Description     string   `json:"description"`
	OpSys           string   `json:"op_sys"`
	Platform        string   `json:"platform"`
	Priority        string   `json:"priority"`
	Severity        string   `json:"severity"`
	Alias           []string `json:"alias"`
	AssignedTo      string   `json:"assigned_to"`
	CC              []string `json:"cc"`
	Keywords        []string `json:"keywords"`
	Status          string   `json:"status"`
	TargetMilestone string   `json:"target_milestone"`
}

func (s *Server) createBug(w http.ResponseWriter, r *http.Request, u User) {
	var body createBugBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}
	for _, req := range [][2]string{{"product", body.Product}, {"component", body.Component}, {"summary", body.Summary}, {"version", body.Version}} {
		if req[1] == "" {
			writeError(w, http.StatusBadRequest, 50, fmt.Sprintf("You must provide a value for %s.", req[0]))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := format(s.now())
	b := &bugRecord{
		ID:                  s.nextBug,
		Alias:               orEmpty(body.Alias),
		AssignedTo:          u.Login,
		AssignedToDetail:    u.record(),
		Blocks:              []int{},
		CC:                  orEmpty(body.CC),
		CCDetail:            []userRecord{},
		Classification:      "Unclassified",
		Component:           body.Component,
		CreationTime:        now,
		Creator:             u.Login,
		CreatorDetail:       u.record(),
		DependsOn:           []int{},
		Flags:               []any{},
		Groups:              []string{},
		IsCCAccessible:      true,
		IsConfirmed:         true,
		IsOpen:              true,
		IsCreatorAccessible: true,
		Keywords:            orEmpty(body.Keywords),
		LastChangeTime:      now,
		OpSys:               body.OpSys,
		Platform:            body.Platform,
		Priority:            body.Priority,
		Product:             body.Product,
		SeeAlso:             []string{},
		Severity:            body.Severity,
		Status:              "CONFIRMED",
		Summary:             body.Summary,
		TargetMilestone:     "---",
		Version:             body.Version,
	}
	if body.AssignedTo != "" {
		b.AssignedTo = body.AssignedTo
		if other, ok := s.userByLogin(body.AssignedTo); ok {
			b.AssignedToDetail = other.record()
		}
	}
	if body.Status != "" {
		b.Status = body.Status
	}
	if body.TargetMilestone != "" {
		b.TargetMilestone = body.TargetMilestone
	}
	s.nextBug++
	s.bugs[b.ID] = b
	s.addComment(b.ID, u, body.Description, false, nil)

	writeJSON(w, http.StatusOK, map[string]any{"id": b.ID})
}

type updateBugBody struct {
	IDs       []int   `json:"ids"`
	Blocks    *idSet  `json:"blocks"`
	DependsOn *idSet  `json:"depends_on"`
	DupeOf    *int    `json:"dupe_of"`
	Comment   *struct {
		Comment   string `json:"comment"`
		IsPrivate bool   `json:"is_private"`
	} `json:"comment"`
	Keywords *struct {
		Add    []string `json:"add"`
		Remove []string `json:"remove"`
		Set    []string `json:"set"`
	} `json:"keywords"`
}

var scalarFields = []string{"assigned_to", "component", "op_sys", "platform", "priority", "product", "resolution", "severity", "status", "summary", "target_milestone", "url", "version", "whiteboard"}

func (s *Server) updateBug(w http.ResponseWriter, r *http.Request, u User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, 100, fmt.Sprintf("'%s' is not a valid bug number nor an alias to a bug.", chi.URLParam(r, "id")))
		return
	}
	raw, err := readRaw(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}
	var body updateBugBody
	if err := wire.Unmarshal(raw, &body); err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}
	var scalars map[string]any
	if err := wire.Unmarshal(raw, &scalars); err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}

	ids := body.IDs
	if len(ids) == 0 {
		ids = []int{id}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bid := range ids {
		if _, ok := s.bugs[bid]; !ok {
			writeError(w, http.StatusNotFound, 101, fmt.Sprintf("Bug #%d does not exist.", bid))
			return
		}
	}

	now := format(s.now())
	results := make([]any, 0, len(ids))
	for _, bid := range ids {
		b := s.bugs[bid]
		changes := map[string]fieldChange{}
		for _, name := range scalarFields {
			v, ok := scalars[name].(string)
			if !ok {
				continue
			}
			old, _ := b.setField(name, v)
			if old != v {
				changes[name] = fieldChange{Added: v, Removed: old}
			}
		}
		if body.Blocks != nil {
			var added, removed []int
			b.Blocks, added, removed = body.Blocks.apply(b.Blocks)
			if len(added) > 0 || len(removed) > 0 {
				changes["blocks"] = fieldChange{Added: joinInts(added), Removed: joinInts(removed)}
			}
		}
		if body.DependsOn != nil {
			var added, removed []int
			b.DependsOn, added, removed = body.DependsOn.apply(b.DependsOn)
			if len(added) > 0 || len(removed) > 0 {
				changes["depends_on"] = fieldChange{Added: joinInts(added), Removed: joinInts(removed)}
			}
		}
		if body.Keywords != nil {
			before := strings.Join(b.Keywords, ", ")
			if body.Keywords.Set != nil {
				b.Keywords = slices.Clone(body.Keywords.Set)
			}
			for _, k := range body.Keywords.Add {
				if !slices.Contains(b.Keywords, k) {
					b.Keywords = append(b.Keywords, k)
				}
			}
			b.Keywords = slices.DeleteFunc(b.Keywords, func(k string) bool { return slices.Contains(body.Keywords.Remove, k) })
			if after := strings.Join(b.Keywords, ", "); after != before {
				changes["keywords"] = fieldChange{Added: after, Removed: before}
			}
		}
		if body.DupeOf != nil {
			d := *body.DupeOf
			b.DupeOf = &d
			changes["dupe_of"] = fieldChange{Added: strconv.Itoa(d)}
		}
		b.IsOpen = b.open()
		if body.Comment != nil && body.Comment.Comment != "" {
			s.addComment(b.ID, u, body.Comment.Comment, body.Comment.IsPrivate, nil)
		}
		if len(changes) > 0 {
			b.LastChangeTime = now
			h := historyRecord{When: now, Who: u.Login}
			for _, name := range sortedKeys(changes) {
				c := changes[name]
				h.Changes = append(h.Changes, changeRecord{FieldName: name, Added: c.Added, Removed: c.Removed})
			}
			b.history = append(b.history, h)
		}
		results = append(results, map[string]any{
			"id":               b.ID,
			"alias":            b.Alias,
			"last_change_time": b.LastChangeTime,
			"changes":          changes,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"bugs": results})
}

func (s *Server) bugHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBug(w, r)
	if !ok {
		return
	}
	since := r.URL.Query().Get("new_since")
	history := []historyRecord{}
	for _, h := range b.history {
		if since == "" || h.When > since {
			history = append(history, h)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bugs": []any{map[string]any{
		"id":      b.ID,
		"alias":   b.Alias,
		"history": history,
	}}})
}

// lookupBug resolves the {id} path parameter. s.mu must be held.
func (s *Server) lookupBug(w http.ResponseWriter, r *http.Request) (*bugRecord, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, 100, "Invalid bug id.")
		return nil, false
	}
	b, ok := s.bugs[id]
	if !ok {
		writeError(w, http.StatusNotFound, 101, fmt.Sprintf("Bug #%d does not exist.", id))
		return nil, false
	}
	return b, true
}

func (s *Server) userByLogin(login string) (User, bool) {
	for _, u := range s.users {
		if u.Login == login {
			return u, true
		}
	}
	return User{}, false
}

// addComment stores a comment. s.mu must be held.
func (s *Server) addComment(bug int, u User, text string, private bool, attachment *int) *commentRecord {
	count := 0
	for _, c := range s.comments {
		if c.BugID == bug {
			count++
		}
	}
	now := format(s.now())
	c := &commentRecord{
		AttachmentID: attachment,
		BugID:        bug,
		Count:        count,
		CreationTime: now,
		Creator:      u.Login,
		ID:           s.nextComment,
		IsPrivate:    private,
		Tags:         []string{},
		Text:         text,
		Time:         now,
	}
	s.nextComment++
	s.comments[c.ID] = c
	return c
}

func (s *Server) getComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, 111, "Invalid comment id.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok {
		writeError(w, http.StatusNotFound, 111, fmt.Sprintf("Comment #%d does not exist.", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"comments": map[string]any{strconv.Itoa(id): c},
		"bugs":     map[string]any{},
	})
}

func (s *Server) bugComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBug(w, r)
	if !ok {
		return
	}
	comments := []*commentRecord{}
	for _, id := range sortedKeys(s.comments) {
		if c := s.comments[id]; c.BugID == b.ID {
			comments = append(comments, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bugs":     map[string]any{strconv.Itoa(b.ID): map[string]any{"comments": comments}},
		"comments": map[string]any{},
	})
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request, u User) {
	var body struct {
		Comment   string `json:"comment"`
		IsPrivate bool   `json:"is_private"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}
	if strings.TrimSpace(body.Comment) == "" {
		writeError(w, http.StatusBadRequest, 54, "You must provide a comment.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBug(w, r)
	if !ok {
		return
	}
	c := s.addComment(b.ID, u, body.Comment, body.IsPrivate, nil)
	writeJSON(w, http.StatusOK, map[string]any{"id": c.ID})
}

func (s *Server) getAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, 100, "Invalid attachment id.")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attachments[id]
	if !ok {
		writeError(w, http.StatusNotFound, 100, fmt.Sprintf("Attachment #%d does not exist.", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attachments": map[string]any{strconv.Itoa(id): a},
		"bugs":        map[string]any{},
	})
}

func (s *Server) bugAttachments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBug(w, r)
	if !ok {
		return
	}
	list := []*attachmentRecord{}
	for _, id := range sortedKeys(s.attachments) {
		if a := s.attachments[id]; a.BugID == b.ID {
			list = append(list, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bugs":        map[string]any{strconv.Itoa(b.ID): list},
		"attachments": map[string]any{},
	})
}

type createAttachmentBody struct {
	IDs         []int  `json:"ids"`
	Data        []byte `json:"data"`
	FileName    string `json:"file_name"`
	Summary     string `json:"summary"`
	ContentType string `json:"content_type"`
	Comment     string `json:"comment"`
	IsPatch     bool   `json:"is_patch"`
	IsPrivate   bool   `json:"is_private"`
}

func (s *Server) createAttachment(w http.ResponseWriter, r *http.Request, u User) {
	var body createAttachmentBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}
	if body.FileName == "" || body.Summary == "" {
		writeError(w, http.StatusBadRequest, 50, "You must provide a file name and a summary.")
		return
	}
	if body.ContentType == "" {
		body.ContentType = "application/octet-stream"
		if body.IsPatch {
			body.ContentType = "text/plain"
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.lookupBug(w, r)
	if !ok {
		return
	}
	targets := body.IDs
	if len(targets) == 0 {
		targets = []int{b.ID}
	}
	for _, id := range targets {
		if _, ok := s.bugs[id]; !ok {
			writeError(w, http.StatusNotFound, 101, fmt.Sprintf("Bug #%d does not exist.", id))
			return
		}
	}

	now := format(s.now())
	ids := make([]string, 0, len(targets))
	for _, bid := range targets {
		a := &attachmentRecord{
			BugID:          bid,
			ContentType:    body.ContentType,
			CreationTime:   now,
			Creator:        u.Login,
			Data:           body.Data,
			FileName:       body.FileName,
			Flags:          []any{},
			ID:             s.nextAttach,
			IsPatch:        body.IsPatch,
			IsPrivate:      body.IsPrivate,
			LastChangeTime: now,
			Size:           len(body.Data),
			Summary:        body.Summary,
		}
		s.nextAttach++
		s.attachments[a.ID] = a
		aid := a.ID
		text := fmt.Sprintf("Created attachment %d\n%s", a.ID, a.Summary)
		if body.Comment != "" {
			text += "\n\n" + body.Comment
		}
		s.addComment(bid, u, text, body.IsPrivate, &aid)
		// some installations return ids as strings
		ids = append(ids, strconv.Itoa(a.ID))
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

type updateAttachmentBody struct {
	FileName    *string `json:"file_name"`
	Summary     *string `json:"summary"`
	ContentType *string `json:"content_type"`
	IsPatch     *bool   `json:"is_patch"`
	IsPrivate   *bool   `json:"is_private"`
	IsObsolete  *bool   `json:"is_obsolete"`
	Comment     string  `json:"comment"`
}

func (s *Server) updateAttachment(w http.ResponseWriter, r *http.Request, u User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, 100, "Invalid attachment id.")
		return
	}
	var body updateAttachmentBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, 32000, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attachments[id]
	if !ok {
		writeError(w, http.StatusNotFound, 100, fmt.Sprintf("Attachment #%d does not exist.", id))
		return
	}
	changes := map[string]fieldChange{}
	setString := func(name string, dst *string, v *string) {
		if v != nil && *v != *dst {
			changes[name] = fieldChange{Added: *v, Removed: *dst}
			*dst = *v
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if v != nil && *v != *dst {
			changes[name] = fieldChange{Added: boolFlag(*v), Removed: boolFlag(*dst)}
			*dst = *v
		}
	}
	setString("file_name", &a.FileName, body.FileName)
	setString("description", &a.Summary, body.Summary)
	setString("content_type", &a.ContentType, body.ContentType)
	setBool("is_patch", &a.IsPatch, body.IsPatch)
	setBool("is_private", &a.IsPrivate, body.IsPrivate)
	setBool("is_obsolete", &a.IsObsolete, body.IsObsolete)

	now := format(s.now())
	if len(changes) > 0 {
		a.LastChangeTime = now
	}
	if body.Comment != "" {
		aid := a.ID
		s.addComment(a.BugID, u, body.Comment, a.IsPrivate, &aid)
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": []any{map[string]any{
		"id":               a.ID,
		"last_change_time": a.LastChangeTime,
		"changes":          changes,
	}}})
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func readRaw(r *http.Request) ([]byte, error) { return io.ReadAll(r.Body) }

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
