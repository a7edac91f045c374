package promquery

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	queryRequestRate = `sum(rate(http_requests_total[5m])) by (app)`
	queryResponseP95 = `histogram_quantile(0.95, sum(rate(http_request_duration_seconds_bucket[5m])) by (app, le)) * 1000`
	queryErrorRate   = `(sum(rate(http_requests_total{status_code=~"5.."}[5m])) by (app) / sum(rate(http_requests_total[5m])) by (app)) * 100`
	queryTotal24h    = `sum(increase(http_requests_total[24h])) by (app)`
	queryCPU         = `100 - (avg by (instance) (rate(node_cpu_seconds_total{mode="idle"}[5m])) * 100)`
	queryMemory      = `100 * (1 - (node_memory_MemAvailable_bytes / node_memory_MemTotal_bytes))`
	queryDisk        = `100 - ((node_filesystem_avail_bytes{mountpoint="/"} / node_filesystem_size_bytes{mountpoint="/"}) * 100)`
	queryHealth      = `up`
)

// DefaultUptimeJobs are the scrape jobs whose up series feed the uptime list.
var DefaultUptimeJobs = []string{"pra_app", "portfolio_app"}

func uptimeQuery(jobs []string) string {
	quoted := make([]string, 0, len(jobs))
	for _, j := range jobs {
		// Regex metacharacters are escaped, then backslashes doubled for
		// the PromQL string literal.
		quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(j), `\`, `\\`))
	}
	return fmt.Sprintf(`up{job=~"%s"}`, strings.Join(quoted, "|"))
}

func geoQuery(top int) string {
	return fmt.Sprintf(`topk(%d, sum(increase(http_requests_total[24h])) by (country))`, top)
}
