// Package retry retries warehouse operations that fail for transient reasons.
//
// It is used for opening the Snowflake session and for the idempotent task
// state operations (SHOW TASKS, ALTER TASK ... SUSPEND|RESUME). Artifact
// batches are never retried: a rejected DDL statement is a deployment
// failure, not a network hiccup.
//
//	executor := retry.NewExecutor(
//	    retry.NewSnowflakeErrorClassifier(),
//	    retry.NewExponentialBackoff(sfdeploy.DefaultRetryMaxAttempts),
//	)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return db.PingContext(ctx)
//	})
//
// Executor instances are safe for concurrent use. WithOnRetry returns a copy.
package retry
