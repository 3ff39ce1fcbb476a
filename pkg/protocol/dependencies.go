package protocol

import (
	"context"
	"net/http"
)

// EmailSender delivers one email. Implemented by the embedding application;
// the email executor only validates input and shapes the result.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body, from string) error
}

// HTTPDoer is the subset of http.Client the apicall executor needs, so
// transports can be stubbed in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// QueryRunner executes one storage query against a named connection and
// reports the number of affected rows.
type QueryRunner interface {
	Run(ctx context.Context, connection, query string, parameters map[string]any) (int64, error)
}
