package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/breezemail/breeze/internal/domain"
)

func newArchiveCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "archive <thread-id>",
		Short: "Archive a thread (remove from Inbox)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := sess.Archive(cmd.Context(), domain.FolderInbox, args[0]); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "archive", ThreadID: args[0]})
			}
			fmt.Println("Thread archived.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}

func newSnoozeCmd() *cobra.Command {
	var accountFlag, untilFlag string

	cmd := &cobra.Command{
		Use:   "snooze <thread-id>",
		Short: "Snooze a thread until a later time",
		Long:  "Remove a thread from the Inbox until the given time, e.g. --until 4h or --until 2025-07-01.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if untilFlag == "" {
				return fmt.Errorf("--until is required")
			}
			until, err := parseWhen(untilFlag, time.Now())
			if err != nil {
				return err
			}

			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sess.Snooze(cmd.Context(), domain.FolderInbox, args[0], until); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "snooze", ThreadID: args[0], Until: until.Format(time.RFC3339)})
			}
			fmt.Printf("Thread snoozed until %s.\n", until.Format("Mon, Jan 2 2006 3:04 PM"))
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	cmd.Flags().StringVar(&untilFlag, "until", "", "when to return the thread (duration like 4h, or a date/timestamp)")
	return cmd
}

func newUnsnoozeCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "unsnooze <thread-id>",
		Short: "Return a snoozed thread to the Inbox now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sess.Unsnooze(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "unsnooze", ThreadID: args[0]})
			}
			fmt.Println("Thread returned to Inbox.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Wake snoozed threads whose time has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			woken := sess.Sweep(cmd.Context())

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "sweep", Count: woken})
			}
			if woken == 0 {
				fmt.Println("Nothing to wake.")
			} else {
				fmt.Printf("Returned %d thread(s) to the Inbox.\n", woken)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}

func newComposeCmd() *cobra.Command {
	var accountFlag, toFlag, ccFlag, subjectFlag, bodyFlag string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose and send a new email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if toFlag == "" {
				return fmt.Errorf("--to is required")
			}
			if subjectFlag == "" {
				return fmt.Errorf("--subject is required")
			}

			body, err := readBody(bodyFlag)
			if err != nil {
				return err
			}

			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			email := &domain.Email{
				To:      parseAddrList(toFlag),
				CC:      parseAddrList(ccFlag),
				Subject: subjectFlag,
				Body:    body,
				Date:    time.Now(),
			}

			if err := sess.Send(cmd.Context(), email); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "compose"})
			}
			fmt.Println("Email sent.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID to send from")
	cmd.Flags().StringVar(&toFlag, "to", "", "recipient email addresses (comma-separated)")
	cmd.Flags().StringVar(&ccFlag, "cc", "", "CC email addresses (comma-separated)")
	cmd.Flags().StringVar(&subjectFlag, "subject", "", "email subject")
	cmd.Flags().StringVar(&bodyFlag, "body", "", "email body (use '-' to read from stdin)")
	return cmd
}

func newReplyCmd() *cobra.Command {
	var accountFlag, bodyFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "reply <thread-id>",
		Short: "Reply to the latest message in a thread",
		Args:  cobra.ExactArgs(1),
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

			thread, err := sess.Thread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(thread.Messages) == 0 {
				return fmt.Errorf("thread %s has no messages", args[0])
			}
			original := thread.Messages[len(thread.Messages)-1]

			reply := &domain.Email{
				To:        []domain.Address{original.From},
				Subject:   prefixSubject("Re: ", original.Subject),
				Body:      body + "\n\n" + formatQuote(&original),
				Date:      time.Now(),
				InReplyTo: original.ID,
				ThreadID:  thread.ID,
			}

			if allFlag {
				reply.CC = append(reply.CC, original.To...)
				reply.CC = append(reply.CC, original.CC...)
			}

			if err := sess.Send(cmd.Context(), reply); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "reply", ThreadID: thread.ID})
			}
			fmt.Println("Reply sent.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	cmd.Flags().StringVar(&bodyFlag, "body", "", "reply body (use '-' to read from stdin)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "reply to all recipients")
	return cmd
}

func newStarCmd() *cobra.Command {
	var accountFlag string
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "star <thread-id>",
		Short: "Star or unstar a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sess.Star(cmd.Context(), args[0], !removeFlag); err != nil {
				return err
			}

			if jsonFlag {
				action := "star"
				if removeFlag {
					action = "unstar"
				}
				return printJSON(jsonAction{OK: true, Action: action, ThreadID: args[0]})
			}
			if removeFlag {
				fmt.Println("Star removed.")
			} else {
				fmt.Println("Thread starred.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	cmd.Flags().BoolVar(&removeFlag, "remove", false, "remove star instead of adding")
	return cmd
}

func newMarkReadCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "mark-read <thread-id>",
		Short: "Mark a thread as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sess.MarkRead(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "mark-read", ThreadID: args[0]})
			}
			fmt.Println("Marked as read.")
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID")
	return cmd
}

// readBody resolves a --body flag value, reading stdin when it is "-".
func readBody(flag string) (string, error) {
	if flag != "-" {
		return flag, nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read body from stdin: %w", err)
	}
	return string(b), nil
}

// parseAddrList splits a comma-separated string of email addresses.
func parseAddrList(s string) []domain.Address {
	if s == "" {
		return nil
	}
	parts := splitTrim(s)
	addrs := make([]domain.Address, len(parts))
	for i, p := range parts {
		addrs[i] = domain.Address{Email: p}
	}
	return addrs
}

// splitTrim splits by comma and trims whitespace.
func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// prefixSubject adds a prefix if not already present.
func prefixSubject(prefix, subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(prefix)) {
		return subject
	}
	return prefix + subject
}

// formatQuote formats an email for quoting in a reply.
func formatQuote(e *domain.Email) string {
	var b strings.Builder
	fmt.Fprintf(&b, "On %s, %s wrote:\n", e.Date.Format("Mon, Jan 2, 2006 at 3:04 PM"), e.From)
	for _, line := range strings.Split(e.Body, "\n") {
		fmt.Fprintf(&b, "> %s\n", line)
	}
	return b.String()
}
