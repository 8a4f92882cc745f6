package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/abatilo/clockwork/internal/session"
)

// loginCmd implements 'clockwork login'.
func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <user-id>",
		Short: "Sign in and check the server for existing data",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a := mustApp()
			defer a.close()

			rec, err := a.requireRemote()
			if err != nil {
				printError(err)
			}
			div, err := rec.OnIdentityEvent(cmd.Context(), session.Event{Type: session.EventSignedIn, UserID: args[0]})
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatDivergence(div))
		},
	}
}

// logoutCmd implements 'clockwork logout'.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; local data is kept",
		Run: func(cmd *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			rec, err := a.requireRemote()
			if err != nil {
				printError(err)
			}
			if _, err = rec.OnIdentityEvent(cmd.Context(), session.Event{Type: session.EventSignedOut}); err != nil {
				printError(err)
			}
			printMessagef("Signed out")
		},
	}
}

// sessionCmd implements 'clockwork session' command group.
func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Identity provider integration",
	}

	cmd.AddCommand(
		sessionEventCmd(),
		sessionShowCmd(),
	)

	return cmd
}

// sessionEventCmd implements 'clockwork session event'.
func sessionEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "event",
		Short: `Apply an identity event read from stdin ({"type":"signed_in","user_id":"..."})`,
		Run: func(cmd *cobra.Command, _ []string) {
			ev, err := session.ReadEvent(os.Stdin)
			if err != nil {
				printError(err)
			}

			a := mustApp()
			defer a.close()

			rec, err := a.requireRemote()
			if err != nil {
				printError(err)
			}
			div, err := rec.OnIdentityEvent(cmd.Context(), *ev)
			if err != nil {
				printError(err)
			}
			if ev.Type == session.EventSignedOut {
				printMessagef("Signed out")
				return
			}
			printOutput(formatter.FormatDivergence(div))
		},
	}
}

// sessionShowCmd implements 'clockwork session show'.
func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show who is signed in",
		Run: func(_ *cobra.Command, _ []string) {
			a := mustApp()
			defer a.close()

			sess, err := a.sessions.Current()
			if err != nil {
				printError(err)
			}
			if sess == nil {
				printMessagef("Not signed in")
				return
			}
			printMessagef("Signed in as %s since %s", sess.UserID, sess.SignedInAt.Local().Format("2006-01-02 15:04"))
		},
	}
}
