package worker

import (
	"errors"
	"strings"

	"github.com/vidmeta/backend/internal/probe"
)

const (
	CategoryBadMedia              = "bad_media"
	CategoryTimeout               = "timeout"
	CategoryProviderError         = "provider_error"
	CategoryDependencyUnavailable = "dependency_unavailable"
	CategoryUnexpectedException   = "unexpected_exception"
)

// Classification pairs a failure category with the fixed operator guidance
// that rides along into the DLQ.
type Classification struct {
	Category       string
	Recommendation string
}

// Classify buckets a terminal failure by error kind and message text. It is a
// pure function; the same error always lands in the same category.
func Classify(err error) Classification {
	msg := strings.ToLower(err.Error())

	var probeErr *probe.MediaProbeError
	if errors.As(err, &probeErr) ||
		strings.Contains(msg, "ffprobe") || strings.Contains(msg, "codec") || strings.Contains(msg, "moov") {
		return Classification{
			Category:       CategoryBadMedia,
			Recommendation: "Validate media format; reject unsupported codecs early and surface clear errors to users.",
		}
	}
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return Classification{
			Category:       CategoryTimeout,
			Recommendation: "Increase worker timeout or split extraction into smaller steps; verify task CPU/memory sizing.",
		}
	}
	if strings.Contains(msg, "bedrock") || strings.Contains(msg, "throttl") || strings.Contains(msg, "model") {
		return Classification{
			Category:       CategoryProviderError,
			Recommendation: "Enable provider retries with jitter, add circuit breaker, and fall back to mock summary when upstream is degraded.",
		}
	}
	if strings.Contains(msg, "redis") || strings.Contains(msg, "s3") ||
		strings.Contains(msg, "endpoint") || strings.Contains(msg, "connection") {
		return Classification{
			Category:       CategoryDependencyUnavailable,
			Recommendation: "Check dependent services health and network; add readiness checks and alerting on dependency latency.",
		}
	}
	return Classification{
		Category:       CategoryUnexpectedException,
		Recommendation: "Capture stack traces and inputs; add regression tests and consider DLQ replay tooling.",
	}
}
