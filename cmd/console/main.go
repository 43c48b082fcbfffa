package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pagereach/console/internal/access"
	"github.com/pagereach/console/internal/backend"
	"github.com/pagereach/console/internal/config"
	"github.com/pagereach/console/internal/credentials"
	"github.com/pagereach/console/internal/dashboard"
	"github.com/pagereach/console/internal/livestatus"
	"github.com/pagereach/console/internal/pkg/logger"
	"github.com/pagereach/console/internal/session"
	"github.com/pagereach/console/internal/urllist"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	a.log.Debug("dispatching command", zap.String("command", cmd))

	switch cmd {
	case "login":
		a.cmdLogin(ctx, os.Args[2:])
	case "logout":
		a.cmdLogout(ctx)
	case "whoami":
		a.cmdWhoami(ctx)
	case "refresh":
		a.cmdRefresh(ctx)
	case "register":
		a.cmdRegister(ctx, os.Args[2:])
	case "passwd":
		a.cmdPasswd(ctx)
	case "forgot":
		a.cmdForgot(ctx, os.Args[2:])
	case "reset":
		a.cmdReset(ctx, os.Args[2:])
	case "verify":
		a.cmdVerify(ctx, os.Args[2:])
	case "campaigns":
		a.cmdCampaigns(ctx, os.Args[2:])
	case "start":
		a.cmdStart(ctx, os.Args[2:])
	case "watch":
		a.cmdWatch(ctx, os.Args[2:])
	case "delete":
		a.cmdDelete(ctx, os.Args[2:])
	case "dashboard":
		a.cmdDashboard(ctx, os.Args[2:])
	case "admin":
		a.cmdAdmin(ctx, os.Args[2:])
	case "status":
		a.cmdStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`console - PageReach admin console

Usage:
  console <command> [flags]

Commands:
  login      [-email <addr>]                        Sign in (password read from stdin)
  logout                                            Sign out and clear stored credentials
  whoami                                            Show the signed-in account
  refresh                                           Renew the session token
  register   [-email <addr>] [-first <name>] ...    Create an account
  passwd                                            Change the account password
  forgot     [-email <addr>]                        Request a password reset link
  reset      -token <token>                         Set a new password from a reset link
  verify     -token <token> | -resend               Verify the account email

  campaigns  [-status <STATE>] [-limit <n>]         List campaigns
  start      -file <csv> -name <name> -message <text>
             [-proxy <url>] [-captcha] [-settings <json>] [-watch]
                                                    Launch a campaign from a CSV of target sites
  watch      [-poll] <campaign-id>                  Follow live campaign progress
  delete     <campaign-id>                          Delete a campaign

  dashboard  [-force] [-days <n>]                   Show account analytics
  admin      users [-page <n>] [-per-page <n>] [-active]
  admin      metrics                                Platform-wide metrics
  status                                            Backend system health (admin)

Environment:
  PAGEREACH_API_URL            Backend base URL (default: http://localhost:8000)
  PAGEREACH_CONFIG             Path to a YAML config file
  PAGEREACH_CREDENTIALS_PATH   Credential file (default: <user config dir>/pagereach/credentials.json)
  PAGEREACH_LOG_LEVEL          Log verbosity: debug, info, warn, error
  PAGEREACH_LOG_ENCODING       Log format: console or json`)
}

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	creds   *credentials.Store
	api     *backend.Client
	session *session.Manager
	paths   access.PathMemory
	stdin   *bufio.Reader
}

func newApp() (*app, error) {
	cfg, err := config.LoadFromEnv(os.Getenv("PAGEREACH_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	credPath, err := cfg.Credentials.ResolvePath()
	if err != nil {
		return nil, fmt.Errorf("resolving credentials path: %w", err)
	}
	creds := credentials.NewStore(credPath, log)

	api := backend.NewClient(cfg.API, creds, log)
	sess := session.NewManager(api, creds, log)
	api.OnSessionInvalidated(func() {
		sess.Invalidate()
		log.Debug("backend invalidated the stored session")
	})

	return &app{
		cfg:     cfg,
		log:     log,
		creds:   creds,
		api:     api,
		session: sess,
		stdin:   bufio.NewReader(os.Stdin),
	}, nil
}

// route is the virtual page a command corresponds to. Commands check it
// against the signed-in user before touching the backend, the same way
// the web console gates its pages.
type route struct {
	path           string
	roles          []backend.Role
	requireProfile bool
}

var (
	campaignRoute = route{path: "/dashboard", requireProfile: true}
	accountRoute  = route{path: "/dashboard"}
	adminRoute    = route{path: "/admin", roles: []backend.Role{backend.RoleAdmin, backend.RoleOwner}}
)

// requireAccess restores the stored session and evaluates the command's
// route. It exits the process when the user may not proceed.
func (a *app) requireAccess(ctx context.Context, rt route) *backend.User {
	hadToken := a.creds.Token() != ""
	if _, err := a.session.Bootstrap(ctx); err != nil {
		fail(err)
	}

	user := a.session.User()
	dec := access.Evaluate(user, rt.roles, rt.requireProfile, rt.path)
	if dec.Allow {
		return user
	}

	a.log.Debug("access denied",
		zap.String("path", rt.path),
		zap.Stringer("reason", dec.Reason),
		zap.String("redirect", dec.RedirectTo))

	switch dec.Reason {
	case access.ReasonUnauthenticated:
		if hadToken {
			fatal("%s", session.MsgSessionExpired)
		}
		fatal("not signed in, run 'console login' first")
	case access.ReasonRoleMismatch:
		fatal("%s", session.MsgForbidden)
	case access.ReasonProfileIncomplete:
		fatal("add your company name and phone number to your profile before using campaign tools")
	}
	return nil
}

// =============================================================================
// AUTH COMMANDS
// =============================================================================

func (a *app) cmdLogin(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email (prompted when empty)")
	fs.Parse(args)

	addr := *email
	if addr == "" {
		addr = a.prompt("Email: ")
	}
	password := a.prompt("Password: ")

	user, err := a.session.Login(ctx, addr, password)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Signed in as %s (%s)\n", user.FullName(), user.Role)
	fmt.Printf("Landing page: %s\n", access.PostLoginPath(user, &a.paths))
	if !user.ContactInfoCompleted() {
		fmt.Println("Contact info is incomplete. Campaign commands stay locked until company name and phone number are set.")
	}
}

func (a *app) cmdLogout(ctx context.Context) {
	a.session.Logout(ctx)
	fmt.Println("Signed out.")
}

func (a *app) cmdWhoami(ctx context.Context) {
	state, err := a.session.Bootstrap(ctx)
	if err != nil {
		fail(err)
	}
	if state != session.StateAuthenticated {
		fmt.Println("Not signed in.")
		os.Exit(1)
	}

	user := a.session.User()
	fmt.Printf("%s <%s>\n", user.FullName(), user.Email)
	fmt.Printf("Role: %s\n", user.Role)
	fmt.Printf("Active: %s  Verified: %s\n", yesNo(user.IsActive), yesNo(user.IsVerified))
	if user.ContactInfoCompleted() {
		fmt.Printf("Company: %s  Phone: %s\n", user.Profile.CompanyName, user.Profile.PhoneNumber)
	} else {
		fmt.Println("Contact info: incomplete (company name and phone number required)")
	}
	if user.Subscription != nil {
		fmt.Printf("Plan: %s (up to %d websites)\n", user.Subscription.PlanName, user.Subscription.MaxWebsites)
	}
	if exp, ok := a.session.TokenExpiry(); ok {
		fmt.Printf("Token expires: %s (%s)\n", exp.Local().Format("2006-01-02 15:04"), humanUntil(exp))
	}
}

func (a *app) cmdRefresh(ctx context.Context) {
	a.requireAccess(ctx, accountRoute)

	if err := a.session.RefreshToken(ctx); err != nil {
		fail(err)
	}
	fmt.Println("Session renewed.")
	if exp, ok := a.session.TokenExpiry(); ok {
		fmt.Printf("Token expires: %s (%s)\n", exp.Local().Format("2006-01-02 15:04"), humanUntil(exp))
	}
}

func (a *app) cmdRegister(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email (prompted when empty)")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	company := fs.String("company", "", "company name")
	job := fs.String("job", "", "job title")
	phone := fs.String("phone", "", "phone number")
	website := fs.String("website", "", "website URL")
	fs.Parse(args)

	addr := *email
	if addr == "" {
		addr = a.prompt("Email: ")
	}
	password := a.prompt("Password: ")

	user, err := a.session.Register(ctx, backend.RegisterRequest{
		Email:       addr,
		Password:    password,
		FirstName:   *first,
		LastName:    *last,
		CompanyName: *company,
		JobTitle:    *job,
		PhoneNumber: *phone,
		WebsiteURL:  *website,
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("Account created for %s\n", user.Email)
	if !user.IsVerified {
		fmt.Println("Check your inbox for a verification email.")
	}
	fmt.Printf("Landing page: %s\n", access.PostLoginPath(user, &a.paths))
}

func (a *app) cmdPasswd(ctx context.Context) {
	a.requireAccess(ctx, accountRoute)

	current := a.prompt("Current password: ")
	next := a.prompt("New password: ")
	if err := a.session.ChangePassword(ctx, current, next); err != nil {
		fail(err)
	}
	fmt.Println("Password changed.")
}

func (a *app) cmdForgot(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("forgot", flag.ExitOnError)
	email := fs.String("email", "", "account email (prompted when empty)")
	fs.Parse(args)

	addr := *email
	if addr == "" {
		addr = a.prompt("Email: ")
	}
	if err := a.session.ForgotPassword(ctx, addr); err != nil {
		fail(err)
	}
	fmt.Println("If that account exists, a reset link is on its way.")
}

func (a *app) cmdReset(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	token := fs.String("token", "", "reset token from the email link")
	fs.Parse(args)

	if *token == "" {
		fatal("usage: console reset -token <token>")
	}
	password := a.prompt("New password: ")
	if err := a.session.ResetPassword(ctx, *token, password); err != nil {
		fail(err)
	}
	fmt.Println("Password updated. Sign in with: console login")
}

func (a *app) cmdVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	token := fs.String("token", "", "verification token from the email link")
	resend := fs.Bool("resend", false, "send a fresh verification email")
	email := fs.String("email", "", "account email for -resend")
	fs.Parse(args)

	switch {
	case *resend:
		addr := *email
		if addr == "" {
			addr = a.prompt("Email: ")
		}
		if err := a.session.ResendVerification(ctx, addr); err != nil {
			fail(err)
		}
		fmt.Println("Verification email sent.")
	case *token != "":
		if err := a.session.VerifyEmail(ctx, *token); err != nil {
			fail(err)
		}
		fmt.Println("Email verified. Sign in with: console login")
	default:
		fatal("usage: console verify -token <token> | console verify -resend [-email <addr>]")
	}
}

// =============================================================================
// CAMPAIGN COMMANDS
// =============================================================================

func (a *app) cmdCampaigns(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("campaigns", flag.ExitOnError)
	status := fs.String("status", "", "filter by state (PENDING, PROCESSING, ACTIVE, COMPLETED, STOPPED, FAILED)")
	limit := fs.Int("limit", 0, "max rows (0 = server default)")
	fs.Parse(args)

	a.requireAccess(ctx, campaignRoute)

	opts := backend.ListOptions{Limit: *limit}
	if *status != "" {
		opts.Status = string(backend.NormalizeState(*status))
	}
	campaigns, err := a.api.Campaigns(ctx, opts)
	if err != nil {
		fail(err)
	}
	if len(campaigns) == 0 {
		fmt.Println("No campaigns.")
		return
	}

	fmt.Printf("%-36s  %-24s  %-10s  %7s  %9s  %8s\n", "ID", "NAME", "STATUS", "TOTAL", "PROCESSED", "SUCCESS")
	for _, c := range campaigns {
		fmt.Printf("%-36s  %-24s  %-10s  %7d  %9d  %7.1f%%\n",
			c.ID, truncate(c.Name, 24), c.Status, c.TotalURLs, c.Processed, c.SuccessRate)
	}
}

func (a *app) cmdStart(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	file := fs.String("file", "", "CSV file of target website URLs")
	name := fs.String("name", "", "campaign name")
	message := fs.String("message", "", "message to submit through contact forms")
	proxy := fs.String("proxy", "", "proxy URL for submissions")
	captcha := fs.Bool("captcha", false, "attempt CAPTCHA-protected forms")
	settings := fs.String("settings", "", "extra campaign settings as JSON")
	watch := fs.Bool("watch", false, "follow live progress after launch")
	fs.Parse(args)

	if *file == "" || *name == "" || *message == "" {
		fatal("usage: console start -file <csv> -name <name> -message <text>")
	}

	a.requireAccess(ctx, campaignRoute)

	data, err := os.ReadFile(*file)
	if err != nil {
		fatal("reading %s: %v", *file, err)
	}

	report, err := urllist.Inspect(bytes.NewReader(data))
	if err != nil && !errors.Is(err, urllist.ErrNoTargets) {
		fatal("inspecting %s: %v", *file, err)
	}
	printPreflight(*file, report)
	if errors.Is(err, urllist.ErrNoTargets) {
		fatal("no usable target URLs in %s", *file)
	}

	result, err := a.api.StartCampaign(ctx, backend.StartCampaignRequest{
		Name:       *name,
		Message:    *message,
		Filename:   filepath.Base(*file),
		CSV:        bytes.NewReader(data),
		Proxy:      *proxy,
		UseCaptcha: *captcha,
		Settings:   *settings,
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("Campaign %q started: id %s, %d URLs queued\n", *name, result.CampaignID, result.TotalURLs)
	pr := result.ProcessingReport
	fmt.Printf("Server accepted %d URLs (%d duplicates removed, %d invalid)\n",
		pr.ValidURLs, pr.DuplicatesRemoved, pr.InvalidURLs)
	if !result.AutomationStarted {
		fmt.Println("Automation has not started yet.")
		if result.AutomationError != "" {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", result.AutomationError)
		}
	}

	if *watch {
		a.watchCampaign(ctx, result.CampaignID, false)
	}
}

func (a *app) cmdWatch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	poll := fs.Bool("poll", false, "poll the status endpoint instead of the live socket")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatal("usage: console watch [-poll] <campaign-id>")
	}

	a.requireAccess(ctx, campaignRoute)
	a.watchCampaign(ctx, fs.Arg(0), *poll)
}

func (a *app) cmdDelete(ctx context.Context, args []string) {
	if len(args) != 1 {
		fatal("usage: console delete <campaign-id>")
	}

	a.requireAccess(ctx, campaignRoute)

	if err := a.api.DeleteCampaign(ctx, args[0]); err != nil {
		fail(err)
	}
	fmt.Printf("Campaign %s deleted.\n", args[0])
}

// watchCampaign follows a campaign until it completes, the feed gives up
// or the user interrupts. WebSocket push by default, polling on request.
func (a *app) watchCampaign(ctx context.Context, campaignID string, poll bool) {
	current, err := a.api.CampaignStatus(ctx, campaignID)
	if err != nil {
		fail(err)
	}
	printStatusLine(*current)
	if current.IsComplete {
		return
	}

	fmt.Println("Watching (Ctrl-C to stop)...")

	// The status endpoint answers 401 once the backend drops the session;
	// surface that instead of burning through the failure budget.
	authLost := make(chan struct{})
	var once sync.Once
	cb := livestatus.Callbacks{
		OnStatus: printStatusLine,
		OnError: func(err error) {
			if backend.IsStatus(err, http.StatusUnauthorized) {
				once.Do(func() { close(authLost) })
			}
		},
	}
	opts := livestatus.OptionsFromConfig(a.cfg.LiveStatus)

	var (
		done  <-chan struct{}
		stop  func()
		state func() livestatus.State
		last  func() *backend.CampaignStatus
	)
	if poll {
		p := livestatus.NewPoller(a.api, campaignID, opts, cb, a.log)
		if err := p.Start(ctx); err != nil {
			fail(err)
		}
		done, stop, state, last = p.Done(), p.Close, p.State, p.LastStatus
	} else {
		dialer := livestatus.NewWSDialer(a.cfg.API.BaseURL, a.creds)
		ch := livestatus.NewChannel(dialer, campaignID, opts, cb, a.log)
		if err := ch.Start(ctx); err != nil {
			if errors.Is(err, livestatus.ErrNoToken) {
				fatal("not signed in, run 'console login' first")
			}
			fail(err)
		}
		done, stop, state, last = ch.Done(), ch.Close, ch.State, ch.LastStatus
	}

	select {
	case <-ctx.Done():
		stop()
		<-done
		fmt.Println("Stopped watching.")
		return
	case <-authLost:
		stop()
		<-done
		fatal("%s", session.MsgSessionExpired)
	case <-done:
	}

	if state() == livestatus.StateFailed {
		if poll {
			fatal("lost contact with the backend while watching, try again later")
		}
		fatal("live socket unavailable, retry with: console watch -poll %s", campaignID)
	}
	if st := last(); st != nil && st.IsComplete {
		fmt.Printf("Campaign %s finished: %s, %d/%d successful\n",
			campaignID, st.Status, st.Successful, st.Total)
	} else {
		fmt.Println("Live status closed.")
	}
}

func printStatusLine(st backend.CampaignStatus) {
	fmt.Printf("[%s] %-10s  %d/%d processed, %d ok, %d failed (%.1f%%)\n",
		time.Now().Format("15:04:05"), st.Status, st.Processed, st.Total,
		st.Successful, st.Failed, st.ProgressPercent)
	if st.ErrorMessage != "" {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", st.ErrorMessage)
	}
}

const invalidRowsShown = 10

func printPreflight(path string, rep *urllist.Report) {
	fmt.Printf("Checked %s: %d targets, %d ready to submit, %d duplicates, %d invalid\n",
		path, rep.Total, rep.Valid, rep.Duplicates, rep.Invalid)

	rows := rep.InvalidRows
	extra := 0
	if len(rows) > invalidRowsShown {
		extra = len(rows) - invalidRowsShown
		rows = rows[:invalidRowsShown]
	}
	for _, row := range rows {
		fmt.Printf("  line %d: %q (%s)\n", row.Line, row.Value, row.Reason)
	}
	if extra > 0 {
		fmt.Printf("  and %d more invalid rows\n", extra)
	}
	if len(rep.Sample) > 0 {
		fmt.Printf("  first targets: %s\n", strings.Join(rep.Sample, ", "))
	}
}

// =============================================================================
// DASHBOARD AND ADMIN COMMANDS
// =============================================================================

func (a *app) cmdDashboard(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	force := fs.Bool("force", false, "bypass the refresh cooldown")
	days := fs.Int("days", 0, "analytics window in days (0 = configured default)")
	fs.Parse(args)

	a.requireAccess(ctx, campaignRoute)

	dcfg := a.cfg.Dashboard
	if *days > 0 {
		dcfg.RangeDays = *days
	}
	ref := dashboard.NewRefresher(a.api, dcfg, a.log)
	snap, err := ref.Refresh(ctx, *force)
	if err != nil {
		fail(err)
	}
	printSnapshot(snap)

	// Header counters and the recent list are decoration; the snapshot
	// above is the part that must not fail silently.
	if quick, err := a.api.QuickStats(ctx); err != nil {
		a.log.Warn("quick stats unavailable", zap.Error(err))
	} else {
		fmt.Printf("Right now: %d active campaigns, %d pending submissions, %d submitted today\n",
			quick.ActiveCampaigns, quick.PendingSubmissions, quick.TodaysSubmissions)
	}
	if recent, err := a.api.RecentCampaigns(ctx, 5); err != nil {
		a.log.Warn("recent campaigns unavailable", zap.Error(err))
	} else if len(recent) > 0 {
		fmt.Println("Recent campaigns:")
		for _, c := range recent {
			fmt.Printf("  %-36s  %-24s  %-10s  %5.1f%%\n",
				c.ID, truncate(c.Name, 24), c.Status, c.ProgressPercent)
		}
	}
}

func printSnapshot(snap *dashboard.Snapshot) {
	if snap == nil {
		fmt.Println("Dashboard refresh is cooling down; try again in a second.")
		return
	}

	an := snap.Analytics
	fmt.Printf("Account analytics for %s\n", an.Email)
	fmt.Printf("  Campaigns:    %d total, %d active, %d websites\n",
		an.CampaignsCount, an.ActiveCampaigns, an.WebsitesCount)
	fmt.Printf("  Submissions:  %d total, %d successful, %d failed (%.1f%% success)\n",
		an.TotalSubmissions, an.SuccessfulSubmissions, an.FailedSubmissions, an.SuccessRate)
	fmt.Printf("  CAPTCHA:      %.1f%% encountered, %.1f%% solved\n",
		an.CaptchaEncounterRate, an.CaptchaSuccessRate)
	fmt.Printf("  Emails found: %d\n", an.EmailsExtracted)

	perf := snap.Performance
	fmt.Printf("Performance (last %d days): %d campaigns, avg success %.1f%%\n",
		perf.TimeRangeDays, perf.Summary.TotalCampaigns, perf.Summary.AvgCampaignSuccessRate)

	daily := snap.Daily
	fmt.Printf("Daily series (%d days): %d submissions over %d active days, %.1f avg/day\n",
		daily.Days, daily.Summary.TotalSubmissions, daily.Summary.ActiveDays,
		daily.Summary.AvgDailySubmissions)

	rev := snap.Revenue
	fmt.Printf("Revenue: $%.2f (%d successful submissions at $%.2f each)\n",
		rev.TotalRevenue, rev.SuccessfulSubmissions, rev.PricePerSubmission)

	fmt.Printf("Fetched %s\n", snap.FetchedAt.Format(time.RFC1123))
}

func (a *app) cmdAdmin(ctx context.Context, args []string) {
	if len(args) == 0 {
		fatal("usage: console admin <users|metrics>")
	}

	switch args[0] {
	case "users":
		fs := flag.NewFlagSet("admin users", flag.ExitOnError)
		page := fs.Int("page", 1, "page number")
		perPage := fs.Int("per-page", 0, "rows per page (0 = server default)")
		active := fs.Bool("active", false, "only active accounts")
		fs.Parse(args[1:])

		a.requireAccess(ctx, adminRoute)

		users, err := a.api.AdminUsers(ctx, backend.AdminUsersOptions{
			Page:       *page,
			PerPage:    *perPage,
			ActiveOnly: *active,
		})
		if err != nil {
			fail(err)
		}

		fmt.Printf("%-30s  %-22s  %-6s  %-6s  %-8s\n", "EMAIL", "NAME", "ROLE", "ACTIVE", "VERIFIED")
		for _, u := range users.Users {
			fmt.Printf("%-30s  %-22s  %-6s  %-6s  %-8s\n",
				truncate(u.Email, 30), truncate(u.FullName(), 22), u.Role,
				yesNo(u.IsActive), yesNo(u.IsVerified))
		}
		fmt.Printf("Page %d of %d (%d accounts)\n", users.Page, users.TotalPages, users.Total)

	case "metrics":
		a.requireAccess(ctx, adminRoute)

		m, err := a.api.AdminMetrics(ctx)
		if err != nil {
			fail(err)
		}

		fmt.Println("Platform metrics")
		fmt.Printf("  Users:       %d total, %d active, %d verified, %d admins (%.1f%% active)\n",
			m.Users.Total, m.Users.Active, m.Users.Verified, m.Users.Admins, m.Users.ActivityRate)
		fmt.Printf("               %d new this week\n", m.Users.NewThisWeek)
		fmt.Printf("  Campaigns:   %d total, %d active, %d today\n",
			m.Campaigns.Total, m.Campaigns.Active, m.Campaigns.Today)
		fmt.Printf("  Submissions: %d total, %d successful (%.1f%%), %d with CAPTCHA, %d today\n",
			m.Submissions.Total, m.Submissions.Successful, m.Submissions.SuccessRate,
			m.Submissions.WithCaptcha, m.Submissions.Today)
		fmt.Printf("  Websites:    %d total, %d with contact forms\n",
			m.Websites.Total, m.Websites.WithForms)

	default:
		fatal("usage: console admin <users|metrics>")
	}
}

func (a *app) cmdStatus(ctx context.Context) {
	a.requireAccess(ctx, adminRoute)

	st, err := a.api.SystemStatus(ctx)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Backend: %s (database %s, %.0f ms)\n", st.Status, st.Database, st.ResponseTimeMS)
	if len(st.Services) > 0 {
		names := make([]string, 0, len(st.Services))
		for name := range st.Services {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-14s %s\n", name, st.Services[name])
		}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (a *app) prompt(label string) string {
	fmt.Fprint(os.Stderr, label)
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		fatal("reading input: %v", err)
	}
	return strings.TrimSpace(line)
}

// fail prints the user-facing description of an API error and exits.
func fail(err error) {
	fatal("%s", session.Describe(err))
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func humanUntil(t time.Time) string {
	d := time.Until(t)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.Round(time.Minute).String()
}
