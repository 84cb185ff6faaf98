package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"text/tabwriter"

	"github.com/appetiteclub/orderboard/pkg/enums/station"
	"github.com/appetiteclub/orderboard/pkg/enums/viewtab"
)

type boardSummary struct {
	Station string         `json:"postazione"`
	Orders  int            `json:"orders"`
	Counts  map[string]int `json:"counts"`
}

// Views prints the per-tab order counts reported by the orders service.
// An empty postazione covers every station.
func Views(ctx context.Context, client OrdersClient, postazione string, out io.Writer) error {
	path := "/views"
	if postazione != "" {
		if station.ByName(postazione) == nil {
			return fmt.Errorf("unknown postazione %q", postazione)
		}
		path += "?postazione=" + url.QueryEscape(postazione)
	}

	resp, err := client.Request(ctx, "GET", path, nil)
	if err != nil {
		return fmt.Errorf("fetch views: %w", err)
	}

	var summary boardSummary
	if err := decodeData(resp, &summary); err != nil {
		return fmt.Errorf("decode views: %w", err)
	}

	scope := summary.Station
	if scope == "" {
		scope = "all stations"
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "in-flight orders (%s)\t%d\n", scope, summary.Orders)
	for _, tab := range viewtab.All {
		fmt.Fprintf(tw, "%s\t%d\n", tab.Code(), summary.Counts[tab.Code()])
	}
	return tw.Flush()
}
