package grpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charbel-alt28/aura-retail-ai/internal/aigateway"
	"github.com/charbel-alt28/aura-retail-ai/pkg/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func requestToProto(action aigateway.Action, products []models.Product) (*structpb.Struct, error) {
	list := make([]any, 0, len(products))
	for _, p := range products {
		m, err := toMap(p)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return structpb.NewStruct(map[string]any{
		"action":   string(action),
		"products": list,
	})
}

func protoToRequest(st *structpb.Struct) (aigateway.Action, []models.Product, error) {
	if st == nil {
		return "", nil, fmt.Errorf("empty request")
	}
	m := st.AsMap()
	name, _ := m["action"].(string)
	action, err := aigateway.ParseAction(name)
	if err != nil {
		return "", nil, err
	}
	var products []models.Product
	if raw, ok := m["products"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return "", nil, err
		}
		if err := json.Unmarshal(data, &products); err != nil {
			return "", nil, fmt.Errorf("decode products: %w", err)
		}
	}
	return action, products, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// statusFromError maps gateway errors onto gRPC codes.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, aigateway.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, aigateway.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, aigateway.ErrQuotaExhausted):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Unavailable, err.Error())
}

// errorFromStatus is the client-side inverse of statusFromError.
func errorFromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", aigateway.ErrUnavailable, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", aigateway.ErrUnknownAction, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", aigateway.ErrRateLimited, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", aigateway.ErrQuotaExhausted, st.Message())
	case codes.Canceled:
		return fmt.Errorf("ai call canceled: %w", err)
	}
	return fmt.Errorf("%w: %s", aigateway.ErrUnavailable, st.Message())
}
