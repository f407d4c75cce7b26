package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/breezemail/breeze/internal/domain"
	"github.com/breezemail/breeze/internal/session"
	"github.com/breezemail/breeze/internal/store/sqlite"
)

func newListCmd() *cobra.Command {
	var accountFlag, folderFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads in a folder",
		Long:  "List the first page of threads in a folder (defaults to inbox).",
		RunE: func(cmd *cobra.Command, args []string) error {
			folderID := domain.FolderID(folderFlag)
			if _, ok := domain.LookupFolder(folderID); !ok {
				return fmt.Errorf("unknown folder %q (use %s)", folderFlag, folderNames())
			}

			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			entry, err := sess.Folder(cmd.Context(), folderID, false)
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(toJSONThreads(entry.Threads))
			}

			if err := printThreadTable(entry.Threads); err != nil {
				return err
			}
			if entry.HasMore() {
				fmt.Println("(more threads available)")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to config default)")
	cmd.Flags().StringVar(&folderFlag, "folder", string(domain.FolderInbox), "folder to list")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search threads with a Gmail query",
		Long:  "Search threads with a free-form Gmail query, e.g. 'from:alice has:attachment'.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			threads, err := sess.Search(cmd.Context(), query)
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(toJSONThreads(threads))
			}
			return printThreadTable(threads)
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to config default)")
	return cmd
}

// printThreadTable renders a thread list as aligned columns.
func printThreadTable(threads []domain.Thread) error {
	if len(threads) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "UNREAD\tFROM\tSUBJECT\tDATE\tMSGS\tTHREAD_ID")
	for _, t := range threads {
		unread := " "
		if t.IsUnread() {
			unread = "*"
		}
		from := t.FromAddress.Name
		if from == "" {
			from = t.FromAddress.Email
		}
		if len(from) > 30 {
			from = from[:27] + "..."
		}
		subject := t.Subject
		if t.SnoozedUntil != nil {
			subject = fmt.Sprintf("[until %s] %s", t.SnoozedUntil.Format("Jan 2 15:04"), subject)
		}
		if len(subject) > 50 {
			subject = subject[:47] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			unread, from, subject,
			t.LastDate.Format("Jan 2, 2006"),
			t.TotalCount, t.ID,
		)
	}
	return w.Flush()
}

func newReadCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "read <thread-id>",
		Short: "Read a thread",
		Long:  "Display all messages in a thread and mark it read.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threadID := args[0]

			sess, db, err := setupSession(cmd, accountFlag)
			if err != nil {
				return err
			}
			defer db.Close()

			thread, err := sess.Thread(cmd.Context(), threadID)
			if err != nil {
				return err
			}
			if err := sess.MarkRead(cmd.Context(), threadID); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not mark thread read: %v\n", err)
			}

			if jsonFlag {
				return printJSON(toJSONThreadDetail(thread))
			}

			fmt.Printf("Subject: %s\n", thread.Subject)
			fmt.Printf("Thread ID: %s\n", thread.ID)
			fmt.Printf("Messages: %d\n", len(thread.Messages))
			fmt.Println(strings.Repeat("─", 60))

			for i, msg := range thread.Messages {
				if i > 0 {
					fmt.Println()
					fmt.Println(strings.Repeat("─", 60))
				}
				fmt.Printf("From: %s\n", msg.From)
				if len(msg.To) > 0 {
					to := make([]string, len(msg.To))
					for j, a := range msg.To {
						to[j] = a.String()
					}
					fmt.Printf("To: %s\n", strings.Join(to, ", "))
				}
				if len(msg.CC) > 0 {
					cc := make([]string, len(msg.CC))
					for j, a := range msg.CC {
						cc[j] = a.String()
					}
					fmt.Printf("CC: %s\n", strings.Join(cc, ", "))
				}
				fmt.Printf("Date: %s\n", msg.Date.Format("Mon, Jan 2 2006 3:04 PM"))
				fmt.Printf("Message ID: %s\n", msg.ID)
				fmt.Println()
				fmt.Println(msg.Body)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account ID (defaults to config default)")
	return cmd
}

// setupSession opens the database and wires a session for the resolved
// account. The caller owns closing the returned DB.
func setupSession(cmd *cobra.Command, accountFlag string) (*session.Session, *sqlite.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	sess, _, err := buildSession(cmd.Context(), db, cfg, accountFlag)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return sess, db, nil
}

func folderNames() string {
	folders := domain.Folders()
	names := make([]string, 0, len(folders))
	for _, f := range folders {
		names = append(names, string(f.ID))
	}
	return strings.Join(names, ", ")
}

// parseWhen parses a snooze target: an absolute RFC 3339 timestamp, a
// date, or a relative duration like "4h".
func parseWhen(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("snooze duration must be positive")
		}
		return now.Add(d), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a duration or timestamp", s)
}
