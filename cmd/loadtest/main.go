package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vladislavdragonenkov/restaurant/internal/domain"
	"github.com/vladislavdragonenkov/restaurant/internal/version"
)

const (
	defaultBaseURL  = "http://localhost:8080/orders/"
	defaultItemName = "potato"
	transportError  = "transport_error"
)

type scenarioKind string

const (
	scenarioListTable    scenarioKind = "list-table"
	scenarioCreateDelete scenarioKind = "create-delete"
)

type createOrderRequest struct {
	TableNumber int32  `json:"table_number"`
	ItemName    string `json:"item_name"`
}

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	wait        time.Duration
	tables      int
	timeout     time.Duration
	itemName    string
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Scenarios         map[string]int64        `json:"scenarios"`
	Methods           map[string]methodReport `json:"methods"`
}

type methodStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

type collector struct {
	mu        sync.Mutex
	methods   map[string]*methodStats
	scenarios map[string]int64
}

func newCollector() *collector {
	return &collector{
		methods:   make(map[string]*methodStats),
		scenarios: make(map[string]int64),
	}
}

// record учитывает один вызов. code: HTTP-статус или transportError, если ответа не было.
func (c *collector) record(method string, latency time.Duration, code string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, exists := c.methods[method]
	if !exists {
		stats = &methodStats{
			codes: make(map[string]int64),
		}
		c.methods[method] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) recordScenario(kind scenarioKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scenarios[string(kind)]++
}

func (c *collector) snapshot(name string) (methodReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.methods[name]
	if !ok {
		return methodReport{}, false
	}
	return stats.report(), true
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Scenarios:       make(map[string]int64, len(c.scenarios)),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}

	if scenarioStats := c.methods["scenario"]; scenarioStats != nil {
		result.TotalScenarios = scenarioStats.calls
		result.SuccessScenarios = scenarioStats.success
		result.FailedScenarios = scenarioStats.failed
		result.ErrorRate = ratio(scenarioStats.failed, scenarioStats.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenarioStats.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for kind, count := range c.scenarios {
		result.Scenarios[kind] = count
	}
	for name, stats := range c.methods {
		result.Methods[name] = stats.report()
	}

	return result
}

func (s *methodStats) report() methodReport {
	codesCopy := make(map[string]int64, len(s.codes))
	for code, count := range s.codes {
		codesCopy[code] = count
	}
	return methodReport{
		Calls:     s.calls,
		Success:   s.success,
		Failed:    s.failed,
		ErrorRate: ratio(s.failed, s.calls),
		Codes:     codesCopy,
		LatencyMs: buildLatencySummary(s.latencies),
	}
}

func parseConfig() (config, error) {
	var cfg config
	var timeoutValue string
	var durationValue string
	var waitValue string

	flag.StringVar(&cfg.baseURL, "base-url", defaultBaseURL, "orders collection URL; a positional argument overrides it")
	flag.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	flag.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m, 15m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 50, "number of concurrent workers")
	flag.StringVar(&waitValue, "wait", "25ms", "pause each worker takes before every scenario")
	flag.IntVar(&cfg.tables, "tables", 200, "table numbers are drawn from [0, tables)")
	flag.StringVar(&timeoutValue, "timeout", "5s", "per-request timeout")
	flag.StringVar(&cfg.itemName, "item", defaultItemName, "item name used by create-delete scenarios")
	flag.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	flag.Parse()

	if arg := strings.TrimSpace(flag.Arg(0)); arg != "" {
		cfg.baseURL = arg
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	wait, err := time.ParseDuration(strings.TrimSpace(waitValue))
	if err != nil {
		return cfg, fmt.Errorf("parse wait: %w", err)
	}
	cfg.wait = wait

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	baseURL, err := normalizeBaseURL(cfg.baseURL)
	if err != nil {
		return cfg, err
	}
	cfg.baseURL = baseURL

	if cfg.duration < 0 {
		return cfg, errors.New("duration must be >= 0")
	}
	if cfg.duration == 0 && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when duration is not set")
	}
	if cfg.duration > 0 && cfg.totalSet && cfg.total <= 0 {
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	}
	if cfg.concurrency <= 0 {
		return cfg, errors.New("concurrency must be > 0")
	}
	if cfg.wait < 0 {
		return cfg, errors.New("wait must be >= 0")
	}
	if maxTables := int(domain.MaxTableNumber) + 1; cfg.tables <= 0 || cfg.tables > maxTables {
		return cfg, fmt.Errorf("tables must be between 1 and %d", maxTables)
	}
	if cfg.timeout <= 0 {
		return cfg, errors.New("timeout must be > 0")
	}

	return cfg, nil
}

// normalizeBaseURL проверяет адрес и добавляет завершающий слэш, чтобы id можно было дописывать в конец.
func normalizeBaseURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse base-url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("base-url must be http or https: %q", raw)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("base-url has no host: %q", raw)
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	return parsed.String(), nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	client := newHTTPClient(cfg)
	defer client.CloseIdleConnections()

	startedAt := time.Now()
	col := newCollector()
	failures := runWorkers(client, cfg, col, pickScenario)

	duration := time.Since(startedAt)
	result := col.buildReport(startedAt, duration)
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}

	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

func newHTTPClient(cfg config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.concurrency
	transport.MaxIdleConnsPerHost = cfg.concurrency
	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: transport,
	}
}

func pickScenario() scenarioKind {
	if rand.IntN(2) == 0 {
		return scenarioListTable
	}
	return scenarioCreateDelete
}

func runWorkers(client *http.Client, cfg config, col *collector, pick func() scenarioKind) int64 {
	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if cfg.wait > 0 {
					time.Sleep(cfg.wait)
				}
				if err := runScenario(client, cfg, pick(), col); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return atomic.LoadInt64(&failures)
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}

		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(client *http.Client, cfg config, kind scenarioKind, col *collector) (err error) {
	scenarioStart := time.Now()
	col.recordScenario(kind)
	defer func() {
		code := "ok"
		if err != nil {
			code = "failed"
		}
		col.record("scenario", time.Since(scenarioStart), code, err == nil)
	}()

	table := int32(rand.IntN(cfg.tables))

	switch kind {
	case scenarioListTable:
		_, err = callListOrders(client, cfg.baseURL, table, col)
		return err
	case scenarioCreateDelete:
		order, createErr := callCreateOrder(client, cfg.baseURL, createOrderRequest{
			TableNumber: table,
			ItemName:    cfg.itemName,
		}, col)
		if createErr != nil {
			return createErr
		}
		return callDeleteOrder(client, cfg.baseURL, order.ID, col)
	default:
		return fmt.Errorf("unsupported scenario: %s", kind)
	}
}

func callListOrders(client *http.Client, baseURL string, table int32, col *collector) ([]domain.Order, error) {
	target := baseURL + "?table_number=" + strconv.Itoa(int(table))
	var orders []domain.Order
	err := doCall(client, "ListOrders", http.MethodGet, target, nil, http.StatusOK, &orders, col)
	return orders, err
}

func callCreateOrder(client *http.Client, baseURL string, req createOrderRequest, col *collector) (domain.Order, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode create request: %w", err)
	}

	var order domain.Order
	if err := doCall(client, "CreateOrder", http.MethodPost, baseURL, payload, http.StatusCreated, &order, col); err != nil {
		return domain.Order{}, err
	}
	if order.ID <= 0 {
		return domain.Order{}, errors.New("create response returned empty order id")
	}
	return order, nil
}

func callDeleteOrder(client *http.Client, baseURL string, id int32, col *collector) error {
	target := baseURL + strconv.Itoa(int(id))
	return doCall(client, "DeleteOrder", http.MethodDelete, target, nil, http.StatusNoContent, nil, col)
}

// doCall выполняет один запрос, пишет его в collector и декодирует тело в out, если out != nil.
func doCall(
	client *http.Client,
	method, httpMethod, target string,
	body []byte,
	wantStatus int,
	out any,
	col *collector,
) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), httpMethod, target, reader)
	if err != nil {
		col.record(method, time.Since(start), transportError, false)
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	req.Header.Set("User-Agent", version.UserAgent("loadtest"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		col.record(method, time.Since(start), transportError, false)
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var decodeErr error
	if resp.StatusCode == wantStatus && out != nil {
		decodeErr = json.NewDecoder(resp.Body).Decode(out)
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	ok := resp.StatusCode == wantStatus && decodeErr == nil
	col.record(method, time.Since(start), strconv.Itoa(resp.StatusCode), ok)

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s: unexpected status %d, want %d", method, resp.StatusCode, wantStatus)
	}
	if decodeErr != nil {
		return fmt.Errorf("%s: decode response: %w", method, decodeErr)
	}
	return nil
}

// writeJSONReport пишет отчёт в файл внутри текущего каталога.
func writeJSONReport(path string, result report) error {
	target := filepath.Clean(path)
	switch {
	case target == "." || target == string(filepath.Separator):
		return errors.New("output path must point to a file")
	case target == ".." || strings.HasPrefix(target, ".."+string(filepath.Separator)):
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	// #nosec G306 -- local load-test report, not a secret.
	return os.WriteFile(target, append(payload, '\n'), 0o644)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("target=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.baseURL,
		runTarget(cfg),
		result.TotalScenarios,
		result.SuccessScenarios,
		result.FailedScenarios,
		result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)
	fmt.Printf("scenarios: %s=%d %s=%d\n",
		scenarioListTable, result.Scenarios[string(scenarioListTable)],
		scenarioCreateDelete, result.Scenarios[string(scenarioCreateDelete)],
	)

	methodNames := make([]string, 0, len(result.Methods))
	for name := range result.Methods {
		if name == "scenario" {
			continue
		}
		methodNames = append(methodNames, name)
	}
	slices.Sort(methodNames)
	for _, name := range methodNames {
		stats := result.Methods[name]
		fmt.Printf(
			"%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms codes=%s\n",
			name,
			stats.Calls,
			stats.Success,
			stats.Failed,
			stats.ErrorRate,
			stats.LatencyMs.P95,
			formatCodes(stats.Codes),
		)
	}
}

func formatCodes(codes map[string]int64) string {
	keys := make([]string, 0, len(codes))
	for code := range codes {
		keys = append(keys, code)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, code := range keys {
		parts = append(parts, fmt.Sprintf("%s:%d", code, codes[code]))
	}
	return strings.Join(parts, ",")
}

func runTarget(cfg config) string {
	switch {
	case cfg.duration <= 0:
		return "count:" + strconv.Itoa(cfg.total)
	case cfg.totalSet:
		return "duration:" + cfg.duration.String() + ",max-total:" + strconv.Itoa(cfg.total)
	default:
		return "duration:" + cfg.duration.String()
	}
}

// buildLatencySummary считает min/avg/max и перцентили по копии values.
func buildLatencySummary(values []float64) latencySummary {
	n := len(values)
	if n == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[n-1],
		Avg: total / float64(n),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile интерполирует линейно между соседними рангами. sorted должен быть отсортирован.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
