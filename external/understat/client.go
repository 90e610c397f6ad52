package understat

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/understat-loader/internal/domain/record"
	"github.com/riskibarqy/understat-loader/internal/platform/logging"
	"github.com/riskibarqy/understat-loader/internal/platform/resilience"
	"github.com/riskibarqy/understat-loader/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultBaseURL = "https://understat.com"
	maxBodyBytes   = 16 << 20
)

var errUnderstatTransient = crerr.New("understat transient failure")

var tracer = otel.Tracer("understat-loader/external/understat")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	Workers        int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
	// RetryBackoff is the base delay between attempts; attempt n waits n*RetryBackoff.
	RetryBackoff time.Duration
}

// Client reads league and match data from Understat and maps it into record batches.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	workers      int
	retryBackoff time.Duration
	logger       *logging.Logger
	breaker      *resilience.CircuitBreaker
	leagueData   resilience.SingleFlight[leagueData]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "understat")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	breaker := resilience.NewOptionalCircuitBreaker("understat", cfg.CircuitBreaker, func(name string, from, to resilience.CircuitState) {
		logger.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	})

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		maxRetries:   max(cfg.MaxRetries, 0),
		workers:      workers,
		retryBackoff: backoff,
		logger:       logger,
		breaker:      breaker,
	}
}

func (c *Client) FetchPlayers(ctx context.Context, leagueName, seasonName string) (*record.Batch, error) {
	ctx, span := tracer.Start(ctx, "understat.Client.FetchPlayers")
	defer span.End()

	_, _, data, err := c.fetchLeague(ctx, leagueName, seasonName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return playersBatch(data)
}

func (c *Client) FetchTeams(ctx context.Context, leagueName, seasonName string) (*record.Batch, error) {
	ctx, span := tracer.Start(ctx, "understat.Client.FetchTeams")
	defer span.End()

	_, _, data, err := c.fetchLeague(ctx, leagueName, seasonName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return teamsBatch(data)
}

// FetchPlayerMatchStats reads the roster of every played match in the season.
// Rosters are fetched on a worker pool; rows keep schedule order.
func (c *Client) FetchPlayerMatchStats(ctx context.Context, leagueName, seasonName string) (*record.Batch, error) {
	ctx, span := tracer.Start(ctx, "understat.Client.FetchPlayerMatchStats")
	defer span.End()

	league, season, data, err := c.fetchLeague(ctx, leagueName, seasonName)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	matches := playedMatches(data)
	span.SetAttributes(attribute.Int("understat.matches", len(matches)))
	rosters, err := c.fetchRosters(ctx, matches)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return playerMatchStatsBatch(league, season, rosters)
}

func (c *Client) fetchLeague(ctx context.Context, leagueName, seasonName string) (League, Season, leagueData, error) {
	league, err := LookupLeague(leagueName)
	if err != nil {
		return League{}, Season{}, leagueData{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	season, err := ParseSeason(seasonName)
	if err != nil {
		return League{}, Season{}, leagueData{}, fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}

	path := "/getLeagueData/" + league.Code + "/" + strconv.Itoa(season.Year)
	data, err, shared := c.leagueData.Do(path, func() (leagueData, error) {
		var out leagueData
		if err := c.doJSON(ctx, path, &out, out.pageVars()...); err != nil {
			return leagueData{}, err
		}
		return out, nil
	})
	if err != nil {
		return League{}, Season{}, leagueData{}, crerr.Wrapf(err, "fetch league data %s %s", league.Name, season.Name())
	}
	if !shared {
		c.logger.DebugContext(ctx, "league data fetched",
			"league", league.Name,
			"season", season.Name(),
			"teams", len(data.Teams),
			"players", len(data.Players),
			"matches", len(data.Dates),
		)
	}
	return league, season, data, nil
}

func (c *Client) fetchRosters(ctx context.Context, matches []matchEntry) ([]matchRoster, error) {
	if len(matches) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(min(c.workers, len(matches)))
	if err != nil {
		return nil, fmt.Errorf("create roster worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]matchRoster, len(matches))
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for idx, match := range matches {
		idx, match := idx, match
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			var data matchData
			if err := c.doJSON(ctx, "/getMatchData/"+match.ID.String(), &data, data.pageVars()...); err != nil {
				errOnce.Do(func() {
					firstErr = crerr.Wrapf(err, "fetch match %s", match.ID)
					cancel()
				})
				return
			}
			out[idx] = matchRoster{match: match, data: data}
		}); err != nil {
			wg.Done()
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("submit roster task to worker pool: %w", err)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any, vars ...pageVar) error {
	var raw []byte
	err := c.breaker.Execute(func() error {
		var reqErr error
		raw, reqErr = c.executeRequest(ctx, c.baseURL+path)
		return reqErr
	}, isCircuitFailure)
	if err != nil {
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "understat circuit breaker rejected request", "path", path)
			return fmt.Errorf("%w: understat is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		return err
	}

	return decodePayload(raw, target, vars...)
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = crerr.Mark(fmt.Errorf("send request: %w", err), errUnderstatTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(fmt.Errorf("read response body: %w", readErr), errUnderstatTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(fmt.Errorf("understat status=%d body=%s", resp.StatusCode, abbreviateBody(raw)), errUnderstatTransient)
			default:
				return nil, fmt.Errorf("understat status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("understat request failed")
	}
	c.logger.WarnContext(ctx, "understat request failed", "url", fullURL, "attempts", c.maxRetries+1, "error", lastErr)
	return nil, lastErr
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errUnderstatTransient)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.Join(strings.Fields(string(raw)), " ")
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
