package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/foodstand/guestkit/internal/clock"
	"github.com/foodstand/guestkit/internal/guest"
)

type visitTarget struct {
	page    string
	section string
}

// parseTargets reads page/section pairs from args, or "page section" lines
// from r when args is empty
func parseTargets(args []string, r io.Reader) ([]visitTarget, error) {
	var out []visitTarget
	if len(args) > 0 {
		for _, arg := range args {
			page, section, ok := strings.Cut(arg, "/")
			if !ok || page == "" || section == "" {
				return nil, fmt.Errorf("expected page/section, got %q", arg)
			}
			out = append(out, visitTarget{page: page, section: section})
		}
		return out, nil
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("expected \"page section\", got %q", scanner.Text())
		}
		out = append(out, visitTarget{page: fields[0], section: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read visits: %w", err)
	}
	return out, nil
}

func newVisitCmd(a *app) *cobra.Command {
	var (
		userAgent string
		pageURL   string
		token     string
		dwell     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "visit [page/section ...]",
		Short: "Mount a guest session against the API and record section visits",
		Long: `Mounts the guest engine as one page load would: the stored guest id is
reused, the device is probed from --ua and the session is registered once.
Each page/section argument (or "page section" line on stdin) is then
entered in turn and held for --dwell before the next one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseTargets(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := a.newClient()
			if err != nil {
				return err
			}
			st, err := a.openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			engine := guest.New(guest.Deps{
				Storage:     st,
				API:         client,
				Clock:       clock.Real(),
				SettleDelay: a.cfg.SettleDelay,
				Logger:      a.logger,
			})

			p := engine.Mount(cmd.Context(), guest.Runtime{UserAgent: userAgent, URL: pageURL, Token: token})
			engine.Settle()

			out := cmd.OutOrStdout()
			dc := engine.Device()
			fmt.Fprintf(out, "guest %s (%s, %s) registration %s\n", p.GuestID, dc.Class, dc.Browser, engine.RegistrationState())
			if p.Authenticated() {
				fmt.Fprintf(out, "signed in as %s\n", p.UserID)
			}

			for _, t := range targets {
				engine.Enter(t.page, t.section)
				fmt.Fprintf(out, "entered %s/%s\n", t.page, t.section)
				time.Sleep(a.cfg.SettleDelay + dwell)
			}
			engine.Close()
			return nil
		},
	}

	cmd.Flags().StringVar(&userAgent, "ua", "", "user-agent string of the runtime")
	cmd.Flags().StringVar(&pageURL, "url", "", "landing page URL (its ref parameter is reported)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token of a signed-in user")
	cmd.Flags().DurationVar(&dwell, "dwell", time.Second, "time spent on each section after it settles")
	return cmd
}
