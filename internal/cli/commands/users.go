package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// UsersOptions holds flags for the users command.
type UsersOptions struct {
	Output string
}

// NewUsersCommand creates the users command.
func NewUsersCommand() *cobra.Command {
	opts := &UsersOptions{}

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List tenant users with their last-login activity",
		Example: `  dsptool users
  dsptool users -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsers(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format: table|json")
	return cmd
}

// UserRow is the rendered view of one tenant user.
type UserRow struct {
	UserName    string `json:"userName"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	DaysVisited int    `json:"daysVisited"`
	LastLogin   string `json:"lastLogin,omitempty"`
	DaysAgo     int    `json:"daysAgo,omitempty"`
}

// userRows flattens the user payloads. Each user carries a "parameters" list
// of name/value pairs; LAST_LOGIN_DATE holds a millisecond epoch, of which
// the first ten digits are the seconds.
func userRows(users []map[string]any, now time.Time) []UserRow {
	rows := make([]UserRow, 0, len(users))
	for _, user := range users {
		row := UserRow{UserName: stringField(user["userName"])}

		params, _ := user["parameters"].([]any)
		for _, p := range params {
			param, ok := p.(map[string]any)
			if !ok {
				continue
			}
			value := stringField(param["value"])
			switch stringField(param["name"]) {
			case "FIRST_NAME":
				row.FirstName = value
			case "LAST_NAME":
				row.LastName = value
			case "EMAIL":
				row.Email = value
			case "NUMBER_OF_DAYS_VISITED":
				row.DaysVisited, _ = strconv.Atoi(value)
			case "LAST_LOGIN_DATE":
				if len(value) >= 10 {
					if secs, err := strconv.ParseInt(value[:10], 10, 64); err == nil {
						login := time.Unix(secs, 0).UTC()
						row.LastLogin = login.Format("02.01.2006")
						row.DaysAgo = int(now.Sub(login).Hours() / 24)
					}
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

func runUsers(cmd *cobra.Command, opts *UsersOptions) error {
	cfg := getConfig()
	ctx := cmd.Context()

	client, err := newAPIClient(ctx, cfg)
	if err != nil {
		return err
	}

	users, err := client.Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	rows := userRows(users, time.Now().UTC())

	if outputFormat(opts.Output, cfg) == "json" {
		return renderJSON(cmd.OutOrStdout(), rows)
	}

	tr := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		tr = append(tr, table.Row{
			r.UserName, r.FirstName, r.LastName, r.Email, r.DaysVisited, r.LastLogin, r.DaysAgo,
		})
	}
	renderRows(cmd.OutOrStdout(),
		table.Row{"User Name", "First Name", "Last Name", "E-Mail", "Days Visited", "Last Login", "Days Ago"}, tr)
	fmt.Fprintf(cmd.OutOrStdout(), "%d users\n", len(rows))
	return nil
}
