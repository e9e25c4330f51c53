package scholar

import (
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// challengeSelectors mark a human-verification interstitial.
var challengeSelectors = []string{
	"#gs_captcha_ccl",
	"#captcha-form",
	"#recaptcha",
	"form[action*='sorry']",
}

// isChallenge reports whether the page is a verification challenge rather
// than results.
func isChallenge(doc *goquery.Document, status int) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	for _, sel := range challengeSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return strings.Contains(strings.ToLower(doc.Find("body").Text()), "unusual traffic")
}

// firstCitableResult returns the cluster id of the first result that offers a
// "Cite" affordance.
func firstCitableResult(doc *goquery.Document) (string, bool) {
	var cid string
	doc.Find(".gs_r[data-cid], .gs_or[data-cid]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Find(".gs_or_cit").Length() == 0 {
			return true
		}
		if id, ok := s.Attr("data-cid"); ok && strings.TrimSpace(id) != "" {
			cid = strings.TrimSpace(id)
			return false
		}
		return true
	})
	return cid, cid != ""
}

// citationVariant returns the text of the i-th formatted citation in a cite
// popup (0 = first listed style).
func citationVariant(doc *goquery.Document, i int) (string, bool) {
	variants := doc.Find(".gs_citr")
	if i >= variants.Length() {
		return "", false
	}
	text := strings.Join(strings.Fields(variants.Eq(i).Text()), " ")
	return text, text != ""
}
