package bugzilla

import (
	"time"

	"github.com/reoring/gobugzilla/schema"
)

var userSchema = schema.ObjectOf[User](
	schema.Bind("id", schema.Int(), func(u *User, v int) { u.ID = v }),
	schema.Bind("name", schema.String(), func(u *User, v string) { u.Name = v }),
	schema.Bind("real_name", schema.String(), func(u *User, v string) { u.RealName = v }),
)

var flagSchema = schema.ObjectOf[Flag](
	schema.Bind("id", schema.Int(), func(f *Flag, v int) { f.ID = v }),
	schema.Bind("name", schema.String(), func(f *Flag, v string) { f.Name = v }),
	schema.Bind("type_id", schema.Int(), func(f *Flag, v int) { f.TypeID = v }),
	schema.Bind("creation_date", schema.Datetime(), func(f *Flag, v time.Time) { f.CreationDate = v }),
	schema.Bind("modification_date", schema.Datetime(), func(f *Flag, v time.Time) { f.ModificationDate = v }),
	schema.Bind("status", schema.String(), func(f *Flag, v string) { f.Status = v }),
	schema.Bind("setter", schema.String(), func(f *Flag, v string) { f.Setter = v }),
	schema.Bind("requestee", schema.Optional(schema.String()), func(f *Flag, v *string) { f.Requestee = v }),
)

var bugSchema = schema.ObjectOf[Bug](
	schema.Bind("alias", schema.MaybeArray(schema.String()), func(b *Bug, v []string) { b.Alias = v }),
	schema.Bind("assigned_to", schema.String(), func(b *Bug, v string) { b.AssignedTo = v }),
	schema.Bind("assigned_to_detail", userSchema, func(b *Bug, v User) { b.AssignedToDetail = v }),
	schema.Bind("blocks", schema.Array(schema.Int()), func(b *Bug, v []int) { b.Blocks = v }),
	schema.Bind("cc", schema.Array(schema.String()), func(b *Bug, v []string) { b.CC = v }),
	schema.Bind("cc_detail", schema.Array[User](userSchema), func(b *Bug, v []User) { b.CCDetail = v }),
	schema.Bind("classification", schema.String(), func(b *Bug, v string) { b.Classification = v }),
	schema.Bind("component", schema.String(), func(b *Bug, v string) { b.Component = v }),
	schema.Bind("creation_time", schema.Datetime(), func(b *Bug, v time.Time) { b.CreationTime = v }),
	schema.Bind("creator", schema.String(), func(b *Bug, v string) { b.Creator = v }),
	schema.Bind("creator_detail", userSchema, func(b *Bug, v User) { b.CreatorDetail = v }),
	schema.Bind("depends_on", schema.Array(schema.Int()), func(b *Bug, v []int) { b.DependsOn = v }),
	schema.Bind("dupe_of", schema.Nullable(schema.Int()), func(b *Bug, v *int) { b.DupeOf = v }),
	schema.Bind("flags", schema.Array[Flag](flagSchema), func(b *Bug, v []Flag) { b.Flags = v }),
	schema.Bind("groups", schema.Array(schema.String()), func(b *Bug, v []string) { b.Groups = v }),
	schema.Bind("id", schema.Int(), func(b *Bug, v int) { b.ID = v }),
	schema.Bind("is_cc_accessible", schema.Bool(), func(b *Bug, v bool) { b.IsCCAccessible = v }),
	schema.Bind("is_confirmed", schema.Bool(), func(b *Bug, v bool) { b.IsConfirmed = v }),
	schema.Bind("is_open", schema.Bool(), func(b *Bug, v bool) { b.IsOpen = v }),
	schema.Bind("is_creator_accessible", schema.Bool(), func(b *Bug, v bool) { b.IsCreatorAccessible = v }),
	schema.Bind("keywords", schema.Array(schema.String()), func(b *Bug, v []string) { b.Keywords = v }),
	schema.Bind("last_change_time", schema.Datetime(), func(b *Bug, v time.Time) { b.LastChangeTime = v }),
	schema.Bind("op_sys", schema.String(), func(b *Bug, v string) { b.OpSys = v }),
	schema.Bind("platform", schema.String(), func(b *Bug, v string) { b.Platform = v }),
	schema.Bind("priority", schema.String(), func(b *Bug, v string) { b.Priority = v }),
	schema.Bind("product", schema.String(), func(b *Bug, v string) { b.Product = v }),
	schema.Bind("qa_contact", schema.String(), func(b *Bug, v string) { b.QAContact = v }),
	schema.Bind("qa_contact_detail", schema.OptionalOr(schema.Array[User](userSchema), nil), func(b *Bug, v []User) { b.QAContactDetail = v }),
	schema.Bind("resolution", schema.String(), func(b *Bug, v string) { b.Resolution = v }),
	schema.Bind("see_also", schema.Array(schema.String()), func(b *Bug, v []string) { b.SeeAlso = v }),
	schema.Bind("severity", schema.String(), func(b *Bug, v string) { b.Severity = v }),
	schema.Bind("status", schema.String(), func(b *Bug, v string) { b.Status = v }),
	schema.Bind("summary", schema.String(), func(b *Bug, v string) { b.Summary = v }),
	schema.Bind("target_milestone", schema.String(), func(b *Bug, v string) { b.TargetMilestone = v }),
	schema.Bind("update_token", schema.Optional(schema.String()), func(b *Bug, v *string) { b.UpdateToken = v }),
	schema.Bind("url", schema.String(), func(b *Bug, v string) { b.URL = v }),
	schema.Bind("version", schema.String(), func(b *Bug, v string) { b.Version = v }),
	schema.Bind("whiteboard", schema.String(), func(b *Bug, v string) { b.Whiteboard = v }),
)

// BugFields lists every field a Bug decodes, in declaration order.
func BugFields() []string { return bugSchema.Fields() }

var changeSchema = schema.ObjectOf[Change](
	schema.Bind("field_name", schema.String(), func(c *Change, v string) { c.FieldName = v }),
	schema.Bind("removed", schema.String(), func(c *Change, v string) { c.Removed = v }),
	schema.Bind("added", schema.String(), func(c *Change, v string) { c.Added = v }),
	schema.Bind("attachment_id", schema.Optional(schema.Int()), func(c *Change, v *int) { c.AttachmentID = v }),
)

var historySchema = schema.ObjectOf[History](
	schema.Bind("when", schema.Datetime(), func(h *History, v time.Time) { h.When = v }),
	schema.Bind("who", schema.String(), func(h *History, v string) { h.Who = v }),
	schema.Bind("changes", schema.Array[Change](changeSchema), func(h *History, v []Change) { h.Changes = v }),
)

var bugHistorySchema = schema.ObjectOf[BugHistory](
	schema.Bind("id", schema.Int(), func(b *BugHistory, v int) { b.ID = v }),
	schema.Bind("alias", schema.MaybeArray(schema.String()), func(b *BugHistory, v []string) { b.Alias = v }),
	schema.Bind("history", schema.Array[History](historySchema), func(b *BugHistory, v []History) { b.History = v }),
)

var fieldChangeSchema = schema.ObjectOf[FieldChange](
	schema.Bind("added", schema.String(), func(c *FieldChange, v string) { c.Added = v }),
	schema.Bind("removed", schema.String(), func(c *FieldChange, v string) { c.Removed = v }),
)

var changesSchema = schema.Map[string, FieldChange](schema.String(), fieldChangeSchema)

var updatedBugSchema = schema.ObjectOf[UpdatedBug](
	schema.Bind("id", schema.Int(), func(u *UpdatedBug, v int) { u.ID = v }),
	schema.Bind("alias", schema.MaybeArray(schema.String()), func(u *UpdatedBug, v []string) { u.Alias = v }),
	schema.Bind("last_change_time", schema.Datetime(), func(u *UpdatedBug, v time.Time) { u.LastChangeTime = v }),
	schema.Bind("changes", changesSchema, func(u *UpdatedBug, v map[string]FieldChange) { u.Changes = v }),
)

var commentSchema = schema.ObjectOf[Comment](
	schema.Bind("attachment_id", schema.Nullable(schema.Int()), func(c *Comment, v *int) { c.AttachmentID = v }),
	schema.Bind("bug_id", schema.Int(), func(c *Comment, v int) { c.BugID = v }),
	schema.Bind("count", schema.Int(), func(c *Comment, v int) { c.Count = v }),
	schema.Bind("creation_time", schema.Datetime(), func(c *Comment, v time.Time) { c.CreationTime = v }),
	schema.Bind("creator", schema.String(), func(c *Comment, v string) { c.Creator = v }),
	schema.Bind("id", schema.Int(), func(c *Comment, v int) { c.ID = v }),
	schema.Bind("is_private", schema.Bool(), func(c *Comment, v bool) { c.IsPrivate = v }),
	schema.Bind("tags", schema.Array(schema.String()), func(c *Comment, v []string) { c.Tags = v }),
	schema.Bind("text", schema.String(), func(c *Comment, v string) { c.Text = v }),
	schema.Bind("time", schema.Datetime(), func(c *Comment, v time.Time) { c.Time = v }),
)

var attachmentSchema = schema.ObjectOf[Attachment](
	schema.Bind("bug_id", schema.Int(), func(a *Attachment, v int) { a.BugID = v }),
	schema.Bind("content_type", schema.String(), func(a *Attachment, v string) { a.ContentType = v }),
	schema.Bind("creation_time", schema.Datetime(), func(a *Attachment, v time.Time) { a.CreationTime = v }),
	schema.Bind("creator", schema.String(), func(a *Attachment, v string) { a.Creator = v }),
	schema.Bind("data", schema.Base64(), func(a *Attachment, v []byte) { a.Data = v }),
	schema.Bind("file_name", schema.String(), func(a *Attachment, v string) { a.FileName = v }),
	schema.Bind("flags", schema.Array[Flag](flagSchema), func(a *Attachment, v []Flag) { a.Flags = v }),
	schema.Bind("id", schema.Int(), func(a *Attachment, v int) { a.ID = v }),
	schema.Bind("is_obsolete", schema.Bool(), func(a *Attachment, v bool) { a.IsObsolete = v }),
	schema.Bind("is_patch", schema.Bool(), func(a *Attachment, v bool) { a.IsPatch = v }),
	schema.Bind("is_private", schema.Bool(), func(a *Attachment, v bool) { a.IsPrivate = v }),
	schema.Bind("last_change_time", schema.Datetime(), func(a *Attachment, v time.Time) { a.LastChangeTime = v }),
	schema.Bind("size", schema.Int(), func(a *Attachment, v int) { a.Size = v }),
	schema.Bind("summary", schema.String(), func(a *Attachment, v string) { a.Summary = v }),
)

var updatedAttachmentSchema = schema.ObjectOf[UpdatedAttachment](
	schema.Bind("id", schema.Int(), func(u *UpdatedAttachment, v int) { u.ID = v }),
	schema.Bind("last_change_time", schema.Datetime(), func(u *UpdatedAttachment, v time.Time) { u.LastChangeTime = v }),
	schema.Bind("changes", changesSchema, func(u *UpdatedAttachment, v map[string]FieldChange) { u.Changes = v }),
)

// envelope decodes the single property name of a response object.
func envelope[T any](name string, d schema.Decoder[T]) schema.Decoder[T] {
	return schema.ObjectOf[T](schema.Bind(name, d, func(dst *T, v T) { *dst = v }))
}

var (
	versionResponse      = envelope("version", schema.String())
	idResponse           = envelope("id", schema.Int())
	historyResponse      = envelope("bugs", schema.Array[BugHistory](bugHistorySchema))
	updateBugResponse    = envelope("bugs", schema.Array[UpdatedBug](updatedBugSchema))
	commentResponse      = envelope("comments", schema.Map[int, Comment](schema.IntString(), commentSchema))
	bugCommentsResponse  = envelope("bugs", schema.Map[int, []Comment](schema.IntString(), envelope("comments", schema.Array[Comment](commentSchema))))
	attachmentResponse   = envelope("attachments", schema.Map[int, Attachment](schema.IntString(), attachmentSchema))
	bugAttachmentsResp   = envelope("bugs", schema.Map[int, []Attachment](schema.IntString(), schema.Array[Attachment](attachmentSchema)))
	attachmentIDsResp    = envelope("ids", schema.Array(schema.Either(schema.Int(), schema.IntString())))
	updateAttachmentResp = envelope("attachments", schema.Array[UpdatedAttachment](updatedAttachmentSchema))
)

func bugsResponse(p schema.Projection) schema.Decoder[[]Bug] {
	return envelope("bugs", schema.Array[Bug](bugSchema.WithProjection(p)))
}
