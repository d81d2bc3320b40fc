package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls qrcodes.v1.Codes.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Issue creates a code.
func (c *Client) Issue(ctx context.Context, url, expires string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "Issue", map[string]any{"url": url, "expires": expires}, opts...)
}

// Resolve returns the redirect target of an active code.
func (c *Client) Resolve(ctx context.Context, id string, opts ...grpc.CallOption) (string, error) {
	out, err := c.call(ctx, "Resolve", map[string]any{"doc_id": id}, opts...)
	if err != nil {
		return "", err
	}
	return stringField(out, "target"), nil
}

// ListActive returns the audit listing.
func (c *Client) ListActive(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "ListActive", map[string]any{}, opts...)
}
