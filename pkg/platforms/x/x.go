package x

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	strip "github.com/grokify/html-strip-tags-go"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/platforms"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/html"
)

const (
	PLATFORM_URL     = "https://x.com"
	UNIT_SELECTOR    = `article[data-testid="tweet"]`
	TEXT_SELECTOR    = `[data-testid="tweetText"]`
	PERMALINK_MARKER = "/status/"
	MAX_TITLE_RUNES  = 140
)

var (
	permalinkRe = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})/status/([0-9]+)`)
	handleRe    = regexp.MustCompile(`^/([A-Za-z0-9_]{1,15})/?$`)

	// Single-segment paths that look like handles but are site sections.
	reservedPaths = map[string]bool{
		"home": true, "explore": true, "notifications": true, "messages": true,
		"i": true, "search": true, "settings": true, "compose": true, "hashtag": true,
		"tos": true, "privacy": true,
	}

	hostDomains = map[string]bool{"x.com": true, "twitter.com": true}
)

// Platform recognises posts rendered by x.com.
type Platform struct{}

func New() *Platform { return &Platform{} }

func (p *Platform) Name() string { return "x" }

func (p *Platform) UnitSelector() string { return UNIT_SELECTOR }

func (p *Platform) Identify(unit *goquery.Selection) (platforms.Identity, bool) {
	var id platforms.Identity

	unit.Find(`a[href*="` + PERMALINK_MARKER + `"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if canonical, ok := CanonicalPermalink(href); ok {
			id.URL = canonical
			return false
		}
		return true
	})
	if id.URL == "" {
		return id, false
	}

	unit.Find(`a[href^="/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if strings.Contains(href, PERMALINK_MARKER) {
			return true
		}
		if h, ok := handleFromPath(href); ok {
			id.Handle = h
			return false
		}
		return true
	})
	if id.Handle == "" {
		return id, false
	}
	return id, true
}

func (p *Platform) Title(unit *goquery.Selection) string {
	raw, err := unit.Find(TEXT_SELECTOR).First().Html()
	if err != nil || raw == "" {
		return ""
	}
	text := html.UnescapeString(strip.StripTags(raw))
	text = strings.Join(strings.Fields(text), " ")
	return utils.Truncate(text, MAX_TITLE_RUNES)
}

// CanonicalPermalink turns a relative or absolute post link into
// https://x.com/<handle>/status/<id>. Query, fragment and trailing media
// segments (/photo/1, /analytics) are dropped.
func CanonicalPermalink(href string) (string, bool) {
	base, _ := url.Parse(PLATFORM_URL)
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	u = base.ResolveReference(u)
	if !isPlatformHost(u.Hostname()) {
		return "", false
	}
	m := permalinkRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return PLATFORM_URL + "/" + m[1] + PERMALINK_MARKER + m[2], true
}

func handleFromPath(href string) (string, bool) {
	href = strings.SplitN(strings.SplitN(href, "?", 2)[0], "#", 2)[0]
	m := handleRe.FindStringSubmatch(href)
	if m == nil {
		return "", false
	}
	h := strings.ToLower(m[1])
	if reservedPaths[h] {
		return "", false
	}
	return h, true
}

func isPlatformHost(host string) bool {
	host = strings.ToLower(host)
	if hostDomains[host] {
		return true
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return false
	}
	return hostDomains[domain]
}
