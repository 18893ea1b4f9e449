package adapter

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

const bofaCampusURL = "https://bankcampuscareers.tal.net/vx/lang-en-GB/mobile-0/brand-4/xf-3d2c04c04723/candidate/jobboard/vacancy/1/adv/?ftq=analyst&fc=2&fl=6&offset=0&num_items=100&f_Item_Coverage=2"

// TalNetAdapter scrapes a TAL.net vacancy table. One request returns up to
// 100 rows so there is no pagination.
type TalNetAdapter struct {
	base
	boardURL string
}

// NewBofACampusAdapter creates the Bank of America campus board source.
func NewBofACampusAdapter(opts Options) *TalNetAdapter {
	return &TalNetAdapter{
		base:     newBase("bofa-campus", "Bank of America", opts),
		boardURL: bofaCampusURL,
	}
}

// Fetch reads the vacancy table, keeping US rows.
func (a *TalNetAdapter) Fetch(ctx context.Context) ([]model.Posting, error) {
	doc, err := doDocument(ctx, a.client(), request{url: a.boardURL})
	if err != nil {
		return nil, fmt.Errorf("tal.net fetch for %s: %w", a.name, err)
	}

	var postings []model.Posting
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a[href*='/opp/']").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		title := cleanText(link.Text())
		loc := cleanText(cells.Last().Text())
		if title == "" || loc == "" || !filter.IsUSLocation(loc) {
			return
		}
		postings = append(postings, posting(title, absoluteURL("https://bankcampuscareers.tal.net", href), loc, nil))
	})
	return postings, nil
}
