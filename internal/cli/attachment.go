package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	bugzilla "github.com/reoring/gobugzilla"
)

func newAttachmentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attachment",
		Aliases: []string{"attach"},
		Short:   "List, download and upload attachments",
	}
	cmd.AddCommand(newAttachmentListCommand(a), newAttachmentGetCommand(a), newAttachmentAddCommand(a))
	return cmd
}

// attachmentInfo is an attachment without its content.
type attachmentInfo struct {
	bugzilla.Attachment
	Data []byte `json:"data,omitempty"`
}

func newAttachmentListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list BUG",
		Short: "List the attachments of a bug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bug, err := atoiArg("bug", args[0])
			if err != nil {
				return err
			}
			list, err := a.client.GetBugAttachments(cmd.Context(), bug)
			if err != nil {
				return err
			}
			infos := make([]attachmentInfo, len(list))
			for i, at := range list {
				infos[i] = attachmentInfo{Attachment: at}
			}
			return a.render(cmd, infos, func(t *tableOut) {
				if len(list) == 0 {
					return
				}
				t.header("ID", "File", "Type", "Size", "Obsolete", "Summary")
				for _, at := range list {
					t.row(at.ID, at.FileName, at.ContentType, at.Size, at.IsObsolete, truncate(at.Summary, 50))
				}
			})
		},
	}
}

func newAttachmentGetCommand(a *app) *cobra.Command {
	var save string
	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Download an attachment",
		Long:  "Download an attachment. Without --save its metadata is printed; --save - writes the content to standard output.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := atoiArg("attachment", args[0])
			if err != nil {
				return err
			}
			at, err := a.client.GetAttachment(cmd.Context(), id)
			if err != nil {
				return err
			}
			switch save {
			case "":
				return a.render(cmd, attachmentInfo{Attachment: at}, func(t *tableOut) {
					t.header(fmt.Sprintf("Attachment %d", at.ID), "")
					t.row("Summary", at.Summary)
					t.row("Bug", at.BugID)
					t.row("File", at.FileName)
					t.row("Type", at.ContentType)
					t.row("Size", at.Size)
					t.row("Creator", at.Creator)
					t.row("Created", formatTime(at.CreationTime))
				})
			case "-":
				_, err := cmd.OutOrStdout().Write(at.Data)
				return err
			default:
				if err := os.WriteFile(save, at.Data, 0o644); err != nil {
					return fmt.Errorf("save attachment: %w", err)
				}
				a.log.Info().Str("file", save).Int("bytes", len(at.Data)).Msg("attachment saved")
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "write the content to this file (- for stdout)")
	return cmd
}

func newAttachmentAddCommand(a *app) *cobra.Command {
	var req bugzilla.CreateAttachmentRequest
	cmd := &cobra.Command{
		Use:   "add BUG FILE",
		Short: "Attach a file to a bug",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bug, err := atoiArg("bug", args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read attachment: %w", err)
			}
			req.Data = data
			if req.FileName == "" {
				req.FileName = filepath.Base(args[1])
			}
			if req.Summary == "" {
				req.Summary = req.FileName
			}
			ids, err := a.client.CreateAttachment(cmd.Context(), bug, req)
			if err != nil {
				return err
			}
			return a.render(cmd, map[string][]int{"ids": ids}, func(t *tableOut) {
				t.header("ID")
				for _, id := range ids {
					t.row(id)
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Summary, "summary", "", "description (defaults to the file name)")
	f.StringVar(&req.FileName, "name", "", "file name shown on the bug")
	f.StringVar(&req.ContentType, "content-type", "", "MIME type")
	f.StringVar(&req.Comment, "comment", "", "comment to add with the attachment")
	f.BoolVar(&req.IsPatch, "patch", false, "mark as a patch")
	f.BoolVar(&req.IsPrivate, "private", false, "make the attachment private")
	return cmd
}
