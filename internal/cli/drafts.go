package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/breezemail/breeze/internal/domain"
)

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage unsent drafts",
	}
	cmd.AddCommand(newDraftSaveCmd())
	cmd.AddCommand(newDraftDeleteCmd())
	return cmd
}

func newDraftSaveCmd() *cobra.Command {
	var accountFlag, idFlag, toFlag, ccFlag, subjectFlag, bodyFlag, threadFlag string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a draft",
		Long:  "Save a draft to the provider. Pass --id to update an existing draft in place.",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(bodyFlag)
			if err != nil {
				return err
			}

			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			draft := &domain.Draft{
				GmailDraftID: idFlag,
				ThreadID:     threadFlag,
				To:           parseAddrList(toFlag),
				CC:           parseAddrList(ccFlag),
				Subject:      subjectFlag,
				Body:         body,
			}

			if err := sess.SaveDraft(cmd.Context(), draft); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonDraft{OK: true, DraftID: draft.GmailDraftID, ThreadID: draft.ThreadID})
			}
			fmt.Printf("Draft saved: %s\n", draft.GmailDraftID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	cmd.Flags().StringVar(&idFlag, "id", "", "draft ID to update (creates a new draft if omitted)")
	cmd.Flags().StringVar(&toFlag, "to", "", "recipient email addresses (comma-separated)")
	cmd.Flags().StringVar(&ccFlag, "cc", "", "CC email addresses (comma-separated)")
	cmd.Flags().StringVar(&subjectFlag, "subject", "", "draft subject")
	cmd.Flags().StringVar(&bodyFlag, "body", "", "draft body (use '-' to read from stdin)")
	cmd.Flags().StringVar(&threadFlag, "thread", "", "thread to attach the draft to")
	return cmd
}

func newDraftDeleteCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "delete <draft-id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			draft := &domain.Draft{GmailDraftID: args[0]}
			if err := sess.DeleteDraft(cmd.Context(), draft); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "draft-delete"})
			}
			fmt.Println("Draft deleted.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}
