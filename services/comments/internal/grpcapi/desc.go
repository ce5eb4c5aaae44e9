package grpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// unary adapts a typed method to grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(CommentServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CommentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CommentServiceServer), ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc describes the comment service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CommentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateComment", CommentServiceServer.CreateComment),
		unary("DeleteComment", CommentServiceServer.DeleteComment),
		unary("RestoreComment", CommentServiceServer.RestoreComment),
		unary("ListTopLevel", CommentServiceServer.ListTopLevel),
		unary("ListReplies", CommentServiceServer.ListReplies),
		unary("GetThread", CommentServiceServer.GetThread),
		unary("ListOwnDeleted", CommentServiceServer.ListOwnDeleted),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "comments/v1/comments.json",
}

// Client calls CommentService over a connection using the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateComment(ctx context.Context, in *CreateCommentRequest, opts ...grpc.CallOption) (*CommentResponse, error) {
	return invoke[CommentResponse](ctx, c.cc, "CreateComment", in, opts...)
}

func (c *Client) DeleteComment(ctx context.Context, in *CommentIDRequest, opts ...grpc.CallOption) (*DeleteCommentResponse, error) {
	return invoke[DeleteCommentResponse](ctx, c.cc, "DeleteComment", in, opts...)
}

func (c *Client) RestoreComment(ctx context.Context, in *CommentIDRequest, opts ...grpc.CallOption) (*CommentResponse, error) {
	return invoke[CommentResponse](ctx, c.cc, "RestoreComment", in, opts...)
}

func (c *Client) ListTopLevel(ctx context.Context, opts ...grpc.CallOption) (*ListCommentsResponse, error) {
	return invoke[ListCommentsResponse](ctx, c.cc, "ListTopLevel", &ListRequest{}, opts...)
}

func (c *Client) ListReplies(ctx context.Context, in *ListRepliesRequest, opts ...grpc.CallOption) (*ListRepliesResponse, error) {
	return invoke[ListRepliesResponse](ctx, c.cc, "ListReplies", in, opts...)
}

func (c *Client) GetThread(ctx context.Context, in *GetThreadRequest, opts ...grpc.CallOption) (*GetThreadResponse, error) {
	return invoke[GetThreadResponse](ctx, c.cc, "GetThread", in, opts...)
}

func (c *Client) ListOwnDeleted(ctx context.Context, opts ...grpc.CallOption) (*ListCommentsResponse, error) {
	return invoke[ListCommentsResponse](ctx, c.cc, "ListOwnDeleted", &ListRequest{}, opts...)
}
