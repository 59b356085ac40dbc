package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/crumbtrail/crumbs"
)

var version = "dev"

var (
	verbose     bool
	preferName  string
	browserName string
	storePath   string
	statePath   string
	profilesDir string
	asJSON      bool
	showValues  bool

	commonFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "verbose, v",
			Usage:       "log reader diagnostics to stderr",
			Destination: &verbose,
		},
		cli.StringFlag{
			Name:        "prefer, p",
			Usage:       "browser to try first (chrome|chromium|edge|brave|firefox)",
			Destination: &preferName,
		},
		cli.StringFlag{
			Name:        "browser, b",
			Usage:       "query exactly one browser, no fallback",
			Destination: &browserName,
		},
		cli.StringFlag{
			Name:        "store",
			Usage:       "explicit cookie database path (requires --browser)",
			Destination: &storePath,
		},
		cli.StringFlag{
			Name:        "local-state",
			Usage:       "explicit Chromium \"Local State\" path (requires --browser)",
			Destination: &statePath,
		},
		cli.StringFlag{
			Name:        "profiles-dir",
			Usage:       "explicit Firefox profiles root (requires --browser)",
			Destination: &profilesDir,
		},
	}

	listFlags = append([]cli.Flag{
		cli.BoolFlag{
			Name:        "json, j",
			Usage:       "print cookies as JSON",
			Destination: &asJSON,
		},
		cli.BoolFlag{
			Name:        "values",
			Usage:       "print cookie values (redacted by default)",
			Destination: &showValues,
		},
	}, commonFlags...)
)

func main() {
	app := cli.App{
		Name:      "crumbs",
		HelpName:  "crumbs",
		Usage:     "read authentication cookies from local browser profiles",
		UsageText: "crumbs <command> [options] [arguments...]",
		Version:   version,
		Commands: []cli.Command{
			{
				Name:   "browsers",
				Usage:  "list installed browsers in lookup order",
				Flags:  commonFlags,
				Action: browsersAction,
			},
			{
				Name:      "list",
				Aliases:   []string{"l"},
				Usage:     "list cookies for a domain",
				UsageText: "crumbs list [options] <domain>",
				Flags:     listFlags,
				Action:    listAction,
			},
			{
				Name:      "header",
				Usage:     "print a ready-to-send Cookie header for a domain",
				UsageText: "crumbs header [options] <domain> [cookie names...]",
				Flags:     commonFlags,
				Action:    headerAction,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "crumbs: %s\n", err)
		os.Exit(1)
	}
}

func logger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func readerOptions() ([]crumbs.ReaderOption, error) {
	opts := []crumbs.ReaderOption{crumbs.WithReaderLogger(logger())}
	if browserName == "" && (storePath != "" || statePath != "" || profilesDir != "") {
		return nil, fmt.Errorf("--store, --local-state and --profiles-dir require --browser")
	}
	if storePath != "" {
		opts = append(opts, crumbs.WithStorePath(storePath))
	}
	if statePath != "" {
		opts = append(opts, crumbs.WithLocalStatePath(statePath))
	}
	if profilesDir != "" {
		opts = append(opts, crumbs.WithProfilesDir(profilesDir))
	}
	return opts, nil
}

func newService() (*crumbs.Service, error) {
	opts, err := readerOptions()
	if err != nil {
		return nil, err
	}
	// An explicit --browser is validated at construction time.
	preferred := preferName
	if browserName != "" {
		preferred = browserName
	}
	return crumbs.NewService(crumbs.Browser(preferred),
		crumbs.WithServiceLogger(logger()),
		crumbs.WithReaderOptions(opts...))
}

// singleReader builds the one backend named by --browser.
func singleReader() (crumbs.StoreReader, error) {
	opts, err := readerOptions()
	if err != nil {
		return nil, err
	}
	return crumbs.NewReader(crumbs.Browser(browserName), opts...)
}

func browsersAction(*cli.Context) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	installed := svc.InstalledBrowsers()
	if len(installed) == 0 {
		fmt.Println("no supported browsers found")
		return nil
	}
	for _, b := range installed {
		fmt.Println(b)
	}
	return nil
}

func listAction(c *cli.Context) error {
	domain := c.Args().First()
	if domain == "" {
		return cli.ShowCommandHelp(c, "list")
	}

	ctx := context.Background()
	var cookies []crumbs.Cookie
	if browserName != "" {
		r, err := singleReader()
		if err != nil {
			return err
		}
		cookies, err = r.ListCookies(ctx, domain)
		if err != nil {
			return err
		}
	} else {
		svc, err := newService()
		if err != nil {
			return err
		}
		cookies = svc.ListCookies(ctx, domain)
	}

	if asJSON {
		return printJSON(cookies)
	}
	if len(cookies) == 0 {
		fmt.Printf("no cookies found for %s\n", domain)
		return nil
	}
	for _, ck := range cookies {
		expires := "session"
		if ck.Expires != nil {
			expires = ck.Expires.Format(time.RFC3339)
		}
		fmt.Printf("%s\t%s\t%s\tpath=%s\texpires=%s\tbrowser=%s\n",
			ck.Domain, ck.Name, displayValue(ck.Value), ck.Path, expires, ck.Source.Browser)
	}
	return nil
}

func headerAction(c *cli.Context) error {
	domain := c.Args().First()
	if domain == "" {
		return cli.ShowCommandHelp(c, "header")
	}
	names := c.Args().Tail()

	ctx := context.Background()
	svc, err := newService()
	if err != nil {
		return err
	}

	var header string
	switch {
	case browserName != "":
		if len(names) > 0 {
			return fmt.Errorf("--browser and cookie names cannot be combined")
		}
		header = svc.CookieHeaderFromBrowser(ctx, crumbs.Browser(browserName), domain)
	case len(names) > 0:
		header, _ = svc.CookieHeader(ctx, domain, names)
	default:
		header = crumbs.FormatHeader(svc.ListCookies(ctx, domain))
	}

	if header == "" {
		return fmt.Errorf("no matching cookies for %s", domain)
	}
	fmt.Println(header)
	return nil
}

// cookieJSON flattens a cookie for output; values stay redacted unless
// explicitly requested.
type cookieJSON struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Domain   string     `json:"domain"`
	Path     string     `json:"path"`
	Secure   bool       `json:"secure"`
	HTTPOnly bool       `json:"http_only"`
	SameSite string     `json:"same_site,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
	Browser  string     `json:"browser"`
	Profile  string     `json:"profile,omitempty"`
}

func printJSON(cookies []crumbs.Cookie) error {
	out := make([]cookieJSON, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, cookieJSON{
			Name:     ck.Name,
			Value:    displayValue(ck.Value),
			Domain:   ck.Domain,
			Path:     ck.Path,
			Secure:   ck.Secure,
			HTTPOnly: ck.HTTPOnly,
			SameSite: string(ck.SameSite),
			Expires:  ck.Expires,
			Browser:  string(ck.Source.Browser),
			Profile:  ck.Source.Profile,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func displayValue(v string) string {
	if showValues {
		return v
	}
	return "<redacted>"
}
