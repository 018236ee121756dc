package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type ReplayInterceptorOptions struct {
	Backend    string
	Mode       string
	TargetFunc func() (bool, error)
}

func (o ReplayInterceptorOptions) GetTargetFunc() func() (bool, error) {
	return o.TargetFunc
}

type FileOperationInterceptorOptions[R any] struct {
	Operation  string
	TargetFunc func() (R, error)
}

func (o FileOperationInterceptorOptions[R]) GetTargetFunc() func() (R, error) {
	return o.TargetFunc
}

type DynamoDBInterceptorOptions struct {
	Operation  string
	TableName  string
	TargetFunc func() (bool, error)
}

func (o DynamoDBInterceptorOptions) GetTargetFunc() func() (bool, error) {
	return o.TargetFunc
}

var (
	// Core replay protection metrics for all backends
	replayOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_operations_total",
		Help: "Total number of replay protection check-and-commit operations",
	}, []string{"result", "backend", "mode"})

	replayOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replay_operation_duration_seconds",
		Help:    "Replay protection operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
	}, []string{"backend"})

	// File backend specific metrics
	replayFileOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_file_operations_total",
		Help: "Total number of file replay backend I/O operations",
	}, []string{"operation", "result"})

	replayFileLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replay_file_latency_seconds",
		Help:    "File replay backend I/O latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to ~0.4s
	}, []string{"operation"})

	// AWS DynamoDB specific metrics
	replayDynamoDBOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_aws_dynamodb_operations_total",
		Help: "Total number of AWS DynamoDB replay operations",
	}, []string{"operation", "table_name", "result"})

	replayDynamoDBLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "replay_aws_dynamodb_latency_seconds",
		Help:    "AWS DynamoDB replay operation latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"operation", "table_name"})

	replayDynamoDBErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_aws_dynamodb_errors_total",
		Help: "Total number of AWS DynamoDB replay errors",
	}, []string{"error_type", "table_name", "operation"})

	ReplayInterceptor = InterceptorFactory(
		func(opt *ReplayInterceptorOptions) *prometheus.Timer {
			return prometheus.NewTimer(replayOpDuration.WithLabelValues(opt.Backend))
		},
		func(opt *ReplayInterceptorOptions, state *prometheus.Timer, err error) {
			if state != nil {
				state.ObserveDuration()
			}
			result := "success"
			if err != nil {
				result = "rejected"
			}
			replayOpsTotal.WithLabelValues(result, opt.Backend, opt.Mode).Inc()
		},
	)
)

func DynamoDBInterceptor(opt *DynamoDBInterceptorOptions) (bool, error) {
	interceptor := InterceptorFactory(
		func(opt *DynamoDBInterceptorOptions) *prometheus.Timer {
			return prometheus.NewTimer(replayDynamoDBLatency.WithLabelValues(opt.Operation, opt.TableName))
		},
		func(opt *DynamoDBInterceptorOptions, state *prometheus.Timer, err error) {
			if state != nil {
				state.ObserveDuration()
			}
			result := "success"
			if err != nil {
				result = "error"
			}
			replayDynamoDBOpsTotal.WithLabelValues(opt.Operation, opt.TableName, result).Inc()
		},
	)
	return interceptor(opt)
}

func FileOperationInterceptor[R any](opt *FileOperationInterceptorOptions[R]) (R, error) {
	interceptor := InterceptorFactory(
		func(opt *FileOperationInterceptorOptions[R]) *prometheus.Timer {
			return prometheus.NewTimer(replayFileLatency.WithLabelValues(opt.Operation))
		},
		func(opt *FileOperationInterceptorOptions[R], state *prometheus.Timer, err error) {
			if state != nil {
				state.ObserveDuration()
			}
			result := "success"
			if err != nil {
				result = "error"
			}
			replayFileOpsTotal.WithLabelValues(opt.Operation, result).Inc()
		},
	)
	return interceptor(opt)
}

func RecordDynamoDBError(errorType, tableName, operation string) {
	replayDynamoDBErrors.WithLabelValues(errorType, tableName, operation).Inc()
}

func init() {
	prometheus.MustRegister(replayOpsTotal)
	prometheus.MustRegister(replayOpDuration)
	prometheus.MustRegister(replayFileOpsTotal)
	prometheus.MustRegister(replayFileLatency)
	prometheus.MustRegister(replayDynamoDBOpsTotal)
	prometheus.MustRegister(replayDynamoDBLatency)
	prometheus.MustRegister(replayDynamoDBErrors)
}
