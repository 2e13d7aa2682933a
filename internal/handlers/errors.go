package handlers

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ledger-shortener/internal/flow"
	"github.com/serroba/ledger-shortener/internal/wallet"
)

var kindStatus = map[flow.ErrorKind]int{
	flow.ErrorInvalidURL:          http.StatusBadRequest,
	flow.ErrorNotFound:            http.StatusNotFound,
	flow.ErrorLogicalRejection:    http.StatusUnprocessableEntity,
	flow.ErrorWalletConnectFailed: http.StatusBadGateway,
	flow.ErrorSendFailed:          http.StatusBadGateway,
	flow.ErrorTransportAmbiguous:  http.StatusGatewayTimeout,
	flow.ErrorIndexUnavailable:    http.StatusServiceUnavailable,
	flow.ErrorAllocationExhausted: http.StatusServiceUnavailable,
	flow.ErrorInternal:            http.StatusInternalServerError,
}

// viewError turns a failed view into an API error. The error kind travels
// as the detail message so clients can branch on it.
func viewError(view *flow.ViewError) error {
	status, ok := kindStatus[view.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	return huma.NewError(status, view.Message, &huma.ErrorDetail{Message: string(view.Kind)})
}

func busyError() error {
	return huma.Error409Conflict("an operation is already in progress for this session")
}

// flowError maps an error returned by the router itself.
func flowError(err error) error {
	if errors.Is(err, flow.ErrBusy) || errors.Is(err, wallet.ErrConnectInProgress) {
		return busyError()
	}

	return viewError(flow.Classify(err))
}
