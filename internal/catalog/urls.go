package catalog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var pageParamPattern = regexp.MustCompile(`[?&]page=(\d+)`)

// BuildListURL returns the listing URL for a category page.
func BuildListURL(siteBase, cateCode string, page int) string {
	q := url.Values{}
	q.Set("cateCd", cateCode)
	q.Set("page", strconv.Itoa(page))
	return strings.TrimRight(siteBase, "/") + "/goods/goods_list.php?" + q.Encode()
}

// Absolutize turns a link found on pageURL into an absolute URL.
// Protocol-relative and root-relative links use siteBase; other relative links are
// resolved against pageURL so path segments are not prefixed twice.
func Absolutize(siteBase, pageURL, link string) (string, bool) {
	link = strings.TrimSpace(link)
	switch {
	case link == "":
		return "", false
	case strings.HasPrefix(link, "http"):
		return link, true
	case strings.HasPrefix(link, "//"):
		return "https:" + link, true
	case strings.HasPrefix(link, "/"):
		return strings.TrimRight(siteBase, "/") + link, true
	}

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		base, err = url.Parse(strings.TrimRight(siteBase, "/") + "/")
		if err != nil {
			return "", false
		}
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// QueryParam returns a query parameter of rawURL, if present and non-empty.
func QueryParam(rawURL, name string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	v := u.Query().Get(name)
	return v, v != ""
}

// pageNumber extracts the page query parameter from an href.
func pageNumber(href string) (int, bool) {
	m := pageParamPattern.FindStringSubmatch(href)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
