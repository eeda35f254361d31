// Package pagination provides concurrent fetching of a bounded range of remote pages.
//
// Search APIs cap the number of items per response, so a caller that wants
// more than one page must issue several requests. This package runs those
// requests in parallel (errgroup with a concurrency limit) and joins on all
// of them before returning.
//
// Example usage:
//
//	fetch := func(ctx context.Context, page int) (*search.Page, error) {
//		return client.FetchPage(ctx, query, page)
//	}
//	bf := pagination.NewBatchFetcher(fetch, pagination.DefaultConfig())
//	results := bf.FetchPages(ctx, 2, 5)
//
// The batch fetcher:
//   - Applies a per-page timeout
//   - Never cancels sibling fetches when one page fails
//   - Returns results indexed by page number, not completion order
//   - Leaves merging and error policy to the caller
package pagination
