package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/aggregate"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/cache"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/fetch"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/metrics"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/model"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/normalize"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/table"
)

// Options configures a Service.
type Options struct {
	PageSize int
	CacheTTL time.Duration
	Rules    risk.Rules
	// FlagThreshold is the minimum score RiskFlags lists by default. Nil
	// selects risk.DefaultFlagThreshold; zero lists every provider.
	FlagThreshold *int
	Metrics       *metrics.Metrics
}

// Service answers every dashboard read from a table backend. Reads are
// memoized; backend failures are logged and surface as an empty Result
// with a message.
type Service struct {
	q             table.Querier
	log           zerolog.Logger
	cache         *cache.Cache
	scorer        *risk.Scorer
	pageSize      int
	flagThreshold int
	now           func() time.Time
}

// New creates a Service over q.
func New(q table.Querier, log zerolog.Logger, opts Options) *Service {
	threshold := risk.DefaultFlagThreshold
	if opts.FlagThreshold != nil {
		threshold = *opts.FlagThreshold
	}
	var obs cache.Observer
	if opts.Metrics != nil {
		obs = opts.Metrics
	}
	return &Service{
		q:             Instrument(q, opts.Metrics),
		log:           log.With().Str("component", "dashboard").Logger(),
		cache:         cache.New(opts.CacheTTL, obs),
		scorer:        risk.NewScorer(opts.Rules),
		pageSize:      opts.PageSize,
		flagThreshold: threshold,
		now:           time.Now,
	}
}

// Invalidate drops every memoized read so the next one reloads from the
// backend.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}

func (s *Service) fetchOpts(tbl string) fetch.Options {
	return fetch.Options{
		PageSize: s.pageSize,
		OnPage: func(page, rows int) {
			s.log.Debug().Str("table", tbl).Int("page", page).Int("rows", rows).Msg("page fetched")
		},
	}
}

func cacheKey(tbl string, q table.Query) string {
	var b strings.Builder
	b.WriteString(tbl)
	for _, f := range q.Filters {
		fmt.Fprintf(&b, "|%s=%s", f.Column, f.Value)
	}
	if q.ILike != nil {
		fmt.Fprintf(&b, "|%s~%s", q.ILike.Column, strings.ToLower(q.ILike.Value))
	}
	if q.OrderBy != "" || len(q.Ties) > 0 {
		fmt.Fprintf(&b, "|order=%s,%t,%s", q.OrderBy, q.Desc, strings.Join(q.Ties, ","))
	}
	return b.String()
}

// load reads every row of tbl matching q through the cache.
func load[T any](ctx context.Context, s *Service, tbl string, q table.Query) ([]T, error) {
	return cache.Get(ctx, s.cache, cacheKey(tbl, q), func(ctx context.Context) ([]T, error) {
		return fetch.All[T](ctx, s.q, tbl, q, s.fetchOpts(tbl))
	})
}

// read is load with a failure turned into a message.
func read[T any](ctx context.Context, s *Service, what, tbl string, q table.Query) Result[T] {
	rows, err := load[T](ctx, s, tbl, q)
	if err != nil {
		return failedRead[T](s, what, err)
	}
	return ok(rows)
}

func failedRead[T any](s *Service, what string, err error) Result[T] {
	s.log.Error().Err(err).Str("read", what).Msg("backend read failed")
	return failed[T](fmt.Sprintf("Could not load %s. Check the database connection.", what))
}

// byTotal orders busiest first, ties broken by the name column.
func byTotal(name string) table.Query {
	return table.Query{}.Order("total_disputes", true).Then(name)
}

func byQuarter() table.Query {
	return table.Query{}.Order("quarter", false)
}

// Overview returns the single summary_overview row.
func (s *Service) Overview(ctx context.Context) Result[model.Overview] {
	r := read[model.Overview](ctx, s, "overview", model.TableOverview, table.Query{})
	if len(r.Rows) > 1 {
		r.Rows = r.Rows[:1]
	}
	return r
}

// Providers returns the provider summaries, busiest first.
func (s *Service) Providers(ctx context.Context) Result[model.ProviderSummary] {
	return read[model.ProviderSummary](ctx, s, "provider summaries", model.TableProviders, byTotal("provider_name"))
}

// States returns the state summaries, busiest first.
func (s *Service) States(ctx context.Context) Result[model.StateSummary] {
	return read[model.StateSummary](ctx, s, "state summaries", model.TableStates, byTotal("state"))
}

// Specialties returns the specialty summaries, busiest first.
func (s *Service) Specialties(ctx context.Context) Result[model.SpecialtySummary] {
	return read[model.SpecialtySummary](ctx, s, "specialty summaries", model.TableSpecialties, byTotal("specialty"))
}

// Payers returns the payer summaries, busiest first.
func (s *Service) Payers(ctx context.Context) Result[model.PayerSummary] {
	return read[model.PayerSummary](ctx, s, "payer summaries", model.TablePayers, byTotal("payer_name"))
}

// Quarterly returns the quarterly summaries in chronological order.
func (s *Service) Quarterly(ctx context.Context) Result[model.QuarterSummary] {
	return read[model.QuarterSummary](ctx, s, "quarterly summaries", model.TableQuarterly, byQuarter())
}

func stateCode(state string) (string, error) {
	code := normalize.State(state)
	if code == "" {
		return "", invalid("state is required")
	}
	return code, nil
}

// StateProviders returns the providers filing in state.
func (s *Service) StateProviders(ctx context.Context, state string) (Result[model.StateProvider], error) {
	code, err := stateCode(state)
	if err != nil {
		return Result[model.StateProvider]{}, err
	}
	return read[model.StateProvider](ctx, s, code+" providers", model.TableStateProviders, byTotal("provider_name").Eq("state", code)), nil
}

// StateSpecialties returns the specialties filing in state.
func (s *Service) StateSpecialties(ctx context.Context, state string) (Result[model.StateSpecialty], error) {
	code, err := stateCode(state)
	if err != nil {
		return Result[model.StateSpecialty]{}, err
	}
	return read[model.StateSpecialty](ctx, s, code+" specialties", model.TableStateSpecialties, byTotal("specialty").Eq("state", code)), nil
}

// StatePayers returns the payers disputed in state.
func (s *Service) StatePayers(ctx context.Context, state string) (Result[model.StatePayer], error) {
	code, err := stateCode(state)
	if err != nil {
		return Result[model.StatePayer]{}, err
	}
	return read[model.StatePayer](ctx, s, code+" payers", model.TableStatePayers, byTotal("payer_name").Eq("state", code)), nil
}

// StateQuarterly returns the quarterly volume of state.
func (s *Service) StateQuarterly(ctx context.Context, state string) (Result[model.StateQuarter], error) {
	code, err := stateCode(state)
	if err != nil {
		return Result[model.StateQuarter]{}, err
	}
	return read[model.StateQuarter](ctx, s, code+" quarterly volume", model.TableStateQuarterly, byQuarter().Eq("state", code)), nil
}

// SearchProviders returns provider summaries whose name contains term,
// ignoring case.
func (s *Service) SearchProviders(ctx context.Context, term string) (Result[model.ProviderSummary], error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Result[model.ProviderSummary]{}, invalid("search term is required")
	}
	q := byTotal("provider_name").Contains("provider_name", term)
	return read[model.ProviderSummary](ctx, s, "search results", model.TableProviders, q), nil
}

// Disputes pages through every dispute matching f.
func (s *Service) Disputes(ctx context.Context, f fetch.Filter) (Result[model.Dispute], error) {
	f.State = strings.TrimSpace(f.State)
	if f.State != "" {
		f.State = normalize.State(f.State)
	}
	q, err := f.Query()
	if err != nil {
		return Result[model.Dispute]{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return read[model.Dispute](ctx, s, "disputes", model.TableDisputes, q.Then(model.TableKeys[model.TableDisputes]...)), nil
}

// datasetSize is the total dispute count, from the overview when it loads
// and from the provider summaries otherwise. Zero when neither loads.
func (s *Service) datasetSize(ctx context.Context) int64 {
	if o, ok := s.Overview(ctx).First(); ok && o.TotalDisputes > 0 {
		return o.TotalDisputes
	}
	var n int64
	for _, p := range s.Providers(ctx).Rows {
		n += p.TotalDisputes
	}
	return n
}

// Investigate builds the deep dive of one provider from its raw disputes.
func (s *Service) Investigate(ctx context.Context, provider string) (Result[aggregate.Investigation], error) {
	provider = normalize.Name(provider)
	if provider == "" {
		return Result[aggregate.Investigation]{}, invalid("provider is required")
	}
	rows, err := load[model.Dispute](ctx, s, model.TableDisputes, table.Query{}.Eq("provider_name", provider).Then(model.TableKeys[model.TableDisputes]...))
	if err != nil {
		return failedRead[aggregate.Investigation](s, "disputes for "+provider, err), nil
	}
	inv, err := aggregate.Investigate(s.scorer, provider, rows, s.datasetSize(ctx))
	if errors.Is(err, aggregate.ErrNoDisputes) {
		return failed[aggregate.Investigation](fmt.Sprintf("No disputes found for %s.", provider)), nil
	}
	if err != nil {
		return failedRead[aggregate.Investigation](s, "investigation", err), nil
	}
	return ok([]aggregate.Investigation{inv}), nil
}

// RiskFlags scores every provider summary and returns those at or above
// minScore, highest first. A negative minScore selects the configured
// threshold.
func (s *Service) RiskFlags(ctx context.Context, minScore int) (Result[risk.FlaggedProvider], error) {
	if minScore < 0 {
		minScore = s.flagThreshold
	}
	if minScore > 100 {
		return Result[risk.FlaggedProvider]{}, invalid("min_score must be within 0..100, got %d", minScore)
	}
	providers := s.Providers(ctx)
	if providers.Message != "" {
		return failed[risk.FlaggedProvider](providers.Message), nil
	}
	return ok(s.scorer.Flagged(providers.Rows, s.datasetSize(ctx), minScore)), nil
}
