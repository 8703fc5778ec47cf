package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
)

func TestSnowflakeErrorClassifier_IsTransient(t *testing.T) {
	classifier := NewSnowflakeErrorClassifier()

	tests := []struct {
		name        string
		err         error
		isTransient bool
	}{
		{"nil", nil, false},
		{
			name:        "connection exception sqlstate",
			err:         &gosnowflake.SnowflakeError{Number: 1, SQLState: "08001", Message: "unable to connect"},
			isTransient: true,
		},
		{
			name:        "driver failed to connect",
			err:         &gosnowflake.SnowflakeError{Number: 260008, Message: "failed to connect to db"},
			isTransient: true,
		},
		{
			name:        "token expired",
			err:         &gosnowflake.SnowflakeError{Number: 390114, Message: "Authentication token has expired"},
			isTransient: true,
		},
		{
			name:        "syntax error",
			err:         &gosnowflake.SnowflakeError{Number: 1003, SQLState: "42000", Message: "SQL compilation error: syntax error"},
			isTransient: false,
		},
		{
			name:        "incorrect credentials",
			err:         &gosnowflake.SnowflakeError{Number: 390100, SQLState: "08004", Message: "Incorrect username or password was specified."},
			isTransient: false,
		},
		{
			name:        "object does not exist",
			err:         &gosnowflake.SnowflakeError{Number: 2003, SQLState: "02000", Message: "Object 'XFRM.ORDERS' does not exist"},
			isTransient: false,
		},
		{
			name:        "connection refused",
			err:         &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED},
			isTransient: true,
		},
		{
			name:        "temporary dns failure",
			err:         &net.DNSError{Err: "server misbehaving", Name: "acme.snowflakecomputing.com", IsTemporary: true},
			isTransient: true,
		},
		{
			name:        "permanent dns failure",
			err:         &net.DNSError{Err: "no answer", Name: "acme.snowflakecomputing.com", IsNotFound: true},
			isTransient: false,
		},
		{"message pattern", errors.New("read tcp: i/o timeout"), true},
		{"wrapped network error", fmt.Errorf("ping: %w", &net.OpError{Op: "read", Err: syscall.ECONNRESET}), true},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", fmt.Errorf("connect: %w", context.DeadlineExceeded), false},
		{"plain error", errors.New("permission denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isTransient, classifier.IsTransient(tt.err))
		})
	}
}
