package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/acervolabs/newsletter-search/internal/archive"
	"github.com/acervolabs/newsletter-search/internal/mailerlite"
	"github.com/acervolabs/newsletter-search/internal/search"
	"github.com/acervolabs/newsletter-search/internal/textutil"
)

const (
	defaultPageDelay        = 2 * time.Second
	defaultRateLimitBackoff = 10 * time.Second

	lastSyncSetting = "last_sync"
	lastSyncLayout  = "2006-01-02 15:04:05"
)

// Config wires an Engine. Client, Store and Index are required; zero delays
// select the defaults tuned for the source API's rate limit.
type Config struct {
	Client     *mailerlite.Client
	Store      *archive.Store
	Index      *search.Index
	ContentDir string

	// PageDelay is slept between successive page fetches in a full sync.
	PageDelay time.Duration
	// RateLimitBackoff is slept before retrying a rate-limited page fetch.
	RateLimitBackoff time.Duration

	Progress ProgressFunc
}

// Engine pulls sent campaigns from the source API into the archive. A sync
// run is a single blocking operation; writes are strictly sequential.
// Overlapping runs (e.g. two cron triggers) must be serialized by the
// caller.
type Engine struct {
	client           *mailerlite.Client
	store            *archive.Store
	index            *search.Index
	contentDir       string
	pageDelay        time.Duration
	rateLimitBackoff time.Duration
	progress         ProgressFunc
}

// Result summarizes a sync run. Errors holds per-page and per-item failures;
// items processed before a failure stay committed.
type Result struct {
	Imported      int
	Updated       int
	Skipped       int
	AlreadySynced bool
	Errors        []string
	Duration      time.Duration
}

// NewEngine creates a sync engine from cfg.
func NewEngine(cfg Config) *Engine {
	if cfg.PageDelay == 0 {
		cfg.PageDelay = defaultPageDelay
	}
	if cfg.RateLimitBackoff == 0 {
		cfg.RateLimitBackoff = defaultRateLimitBackoff
	}
	return &Engine{
		client:           cfg.Client,
		store:            cfg.Store,
		index:            cfg.Index,
		contentDir:       cfg.ContentDir,
		pageDelay:        cfg.PageDelay,
		rateLimitBackoff: cfg.RateLimitBackoff,
		progress:         cfg.Progress,
	}
}

// SyncNew is the incremental mode: it fetches only the first (newest) page
// of the sent listing and imports items top-down until it meets one that is
// already archived. Because the listing is newest-first, the first existing
// item proves everything below it was imported in a prior run, so the run
// costs O(new items).
func (e *Engine) SyncNew(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	e.emit(EventPage, SeverityInfo, "requesting latest sent campaigns")
	campaigns, err := e.client.ListSent(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	if len(campaigns) == 0 {
		res.AlreadySynced = true
		e.markSynced(res, start, "no sent campaigns at source")
		return res, nil
	}

	latest := campaigns[0]
	if latest.ID == "" {
		return nil, fmt.Errorf("latest campaign missing ID")
	}

	existing, err := e.store.GetBySource(archive.SourceMailerLite, latest.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup latest campaign: %w", err)
	}
	if existing != nil {
		res.AlreadySynced = true
		res.Skipped = len(campaigns)
		e.markSynced(res, start, "already synced")
		return res, nil
	}

	for i := range campaigns {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		campaign := &campaigns[i]
		if campaign.ID == "" {
			continue
		}

		existing, err := e.store.GetBySource(archive.SourceMailerLite, campaign.ID)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("lookup campaign %s: %v", campaign.ID, err))
			continue
		}
		if existing != nil {
			// Everything below this one is from a prior run.
			break
		}

		imported, err := e.importCampaign(ctx, campaign, nil)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("import campaign %s: %v", campaign.ID, err))
			e.emit(EventItem, SeverityError, fmt.Sprintf("failed: %q: %v", campaign.DisplaySubject(), err))
			continue
		}
		if imported {
			res.Imported++
			e.emitCount(EventItem, SeveritySuccess, fmt.Sprintf("imported %q", campaign.DisplaySubject()), res.Imported)
		} else {
			res.Skipped++
			e.emit(EventItem, SeverityWarning, fmt.Sprintf("skipped %q (no content)", campaign.DisplaySubject()))
		}
	}

	e.markSynced(res, start, fmt.Sprintf("sync complete: %d imported", res.Imported))
	return res, nil
}

// SyncAll is the full reconciliation mode: it pages through the complete
// sent listing, importing missing items and re-fetching changed ones. An
// item counts as unchanged when its stored name and subject are byte-equal
// to the fetched values. limit > 0 caps imported+updated and stops the run
// mid-page once reached. Rate-limited page fetches are retried after a
// backoff without advancing; other page errors end the run with everything
// processed so far committed.
func (e *Engine) SyncAll(ctx context.Context, limit int) (*Result, error) {
	start := time.Now()
	res := &Result{}
	page := 1

pages:
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		e.emit(EventPage, SeverityInfo, fmt.Sprintf("requesting page %d", page))
		campaigns, err := e.client.ListSent(ctx, page)
		if err != nil {
			if mailerlite.IsRateLimited(err) {
				e.emit(EventPage, SeverityWarning, fmt.Sprintf("rate limited, waiting %s", e.rateLimitBackoff))
				if err := e.sleep(ctx, e.rateLimitBackoff); err != nil {
					return res, err
				}
				continue // retry the same page
			}
			res.Errors = append(res.Errors, fmt.Sprintf("page %d: %v", page, err))
			e.emit(EventPage, SeverityError, fmt.Sprintf("page %d failed: %v", page, err))
			break
		}

		if len(campaigns) == 0 {
			if page == 1 {
				e.emit(EventPage, SeverityWarning, "no sent campaigns at source")
			} else {
				e.emit(EventPage, SeveritySuccess, "reached end of listing")
			}
			break
		}
		e.emit(EventPage, SeverityInfo, fmt.Sprintf("found %d campaigns on page %d", len(campaigns), page))

		for i := range campaigns {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			campaign := &campaigns[i]
			if campaign.ID == "" {
				continue
			}

			existing, err := e.store.GetBySource(archive.SourceMailerLite, campaign.ID)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("lookup campaign %s: %v", campaign.ID, err))
				continue
			}

			if existing != nil && existing.Name == campaign.Name && existing.Subject == campaign.DisplaySubject() {
				res.Skipped++
				e.emit(EventItem, SeverityInfo, fmt.Sprintf("skipped %q (unchanged)", campaign.DisplaySubject()))
				continue
			}

			imported, err := e.importCampaign(ctx, campaign, existing)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("import campaign %s: %v", campaign.ID, err))
				e.emit(EventItem, SeverityError, fmt.Sprintf("failed: %q: %v", campaign.DisplaySubject(), err))
				continue
			}
			if !imported {
				res.Skipped++
				e.emit(EventItem, SeverityWarning, fmt.Sprintf("skipped %q (no content)", campaign.DisplaySubject()))
				continue
			}

			if existing != nil {
				res.Updated++
				e.emitCount(EventItem, SeveritySuccess, fmt.Sprintf("updated %q", campaign.DisplaySubject()), res.Imported+res.Updated)
			} else {
				res.Imported++
				e.emitCount(EventItem, SeveritySuccess, fmt.Sprintf("imported %q", campaign.DisplaySubject()), res.Imported+res.Updated)
			}

			if limit > 0 && res.Imported+res.Updated >= limit {
				e.emit(EventInfo, SeverityWarning, fmt.Sprintf("reached import limit of %d", limit))
				break pages
			}
		}

		page++
		if err := e.sleep(ctx, e.pageDelay); err != nil {
			return res, err
		}
	}

	e.markSynced(res, start, fmt.Sprintf("sync complete: %d imported, %d updated, %d skipped, %d errors",
		res.Imported, res.Updated, res.Skipped, len(res.Errors)))
	return res, nil
}

// importCampaign fetches full content for a campaign and persists it as a
// new issue or an overwrite of existing. Returns false when the detail
// response carries no content in any known shape. Search indexing is
// best-effort and never fails the import.
func (e *Engine) importCampaign(ctx context.Context, campaign *mailerlite.Campaign, existing *archive.Issue) (bool, error) {
	detail, err := e.client.GetCampaign(ctx, campaign.ID)
	if err != nil {
		return false, fmt.Errorf("fetch content: %w", err)
	}

	htmlBody := detail.ContentHTML()
	if htmlBody == "" {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Join(e.contentDir, "json"), 0o755); err != nil {
		return false, fmt.Errorf("create content dir: %w", err)
	}

	filename := campaign.ID + ".html"
	if err := os.WriteFile(filepath.Join(e.contentDir, filename), []byte(htmlBody), 0o644); err != nil {
		return false, fmt.Errorf("write content file: %w", err)
	}
	// Raw payload snapshot rides along for diagnostics and re-imports.
	if len(detail.Raw) > 0 {
		if err := os.WriteFile(filepath.Join(e.contentDir, "json", campaign.ID+".json"), detail.Raw, 0o644); err != nil {
			e.emit(EventInfo, SeverityWarning, fmt.Sprintf("write metadata snapshot for %s: %v", campaign.ID, err))
		}
	}

	sentAt, ok := campaign.SentAt()
	if !ok {
		sentAt, ok = detail.SentAt()
	}
	if !ok {
		sentAt = time.Now()
	}

	preview := detail.Settings.PreviewText
	if preview == "" {
		preview = campaign.Settings.PreviewText
	}

	sourceID := campaign.ID
	issue := &archive.Issue{
		Name:        campaign.Name,
		Subject:     campaign.DisplaySubject(),
		PreviewText: preview,
		SentAt:      sentAt,
		Source:      archive.SourceMailerLite,
		SourceID:    &sourceID,
		ContentPath: &filename,
	}

	if existing != nil {
		issue.ID = existing.ID
		issue.Hidden = existing.Hidden
		issue.CreatedAt = existing.CreatedAt
		if err := e.store.Update(issue); err != nil {
			return false, err
		}
	} else {
		if err := e.store.Insert(issue); err != nil {
			return false, err
		}
	}

	if !issue.Hidden {
		doc := &search.Document{
			ID:          issue.ID,
			Subject:     issue.Subject,
			PreviewText: issue.PreviewText,
			Body:        textutil.ExtractText(htmlBody),
			SentAt:      issue.SentAt,
			Source:      issue.Source,
		}
		if err := e.index.Upsert(doc); err != nil {
			e.emit(EventInfo, SeverityWarning, fmt.Sprintf("indexing %s failed (reindex later): %v", issue.ID, err))
		}
	}

	return true, nil
}

func (e *Engine) markSynced(res *Result, start time.Time, message string) {
	if err := e.store.SetSetting(lastSyncSetting, time.Now().Format(lastSyncLayout)); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("record last sync: %v", err))
	}
	res.Duration = time.Since(start)
	e.emit(EventComplete, SeveritySuccess, message)
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) emit(kind EventKind, severity Severity, message string) {
	e.emitCount(kind, severity, message, 0)
}

func (e *Engine) emitCount(kind EventKind, severity Severity, message string, count int) {
	if e.progress != nil {
		e.progress(Event{Kind: kind, Severity: severity, Message: message, Count: count})
	}
}
