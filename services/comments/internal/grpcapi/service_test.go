package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/example/comment-platform/services/comments/internal/store"
)

const (
	alice int64 = 1
	bob   int64 = 2
)

type harness struct {
	client *Client
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	repo := store.NewInMemoryRepository()
	repo.SetClock(func() time.Time {
		h.now = h.now.Add(time.Millisecond)
		return h.now
	})
	repo.AddUser(alice, "alice")
	repo.AddUser(bob, "bob")
	svc := &CommentService{
		Comments: store.New(repo, store.WithClock(func() time.Time { return h.now })),
		Log:      zap.NewNop(),
	}

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(UnaryLogger(zap.NewNop())))
	RegisterCommentServiceServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	h.client = NewClient(conn)
	return h
}

func as(userID string) context.Context {
	return metadata.NewOutgoingContext(context.Background(), metadata.Pairs("user_id", userID))
}

func errorReason(t *testing.T, err error) string {
	t.Helper()
	for _, d := range status.Convert(err).Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.Reason
		}
	}
	return ""
}

func TestCreateComment_Success(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.CreateComment(as("1"), &CreateCommentRequest{Body: "Great thread!"})
	if err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	c := resp.Comment
	if c.ID == 0 || c.AuthorID != alice || c.Body != "Great thread!" {
		t.Fatalf("unexpected comment %+v", c)
	}
	if c.Author == nil || c.Author.Username != "alice" {
		t.Fatalf("expected author projection, got %+v", c.Author)
	}
}

func TestCreateComment_Unauthenticated(t *testing.T) {
	h := newHarness(t)
	for _, ctx := range []context.Context{context.Background(), as("abc"), as("0")} {
		_, err := h.client.CreateComment(ctx, &CreateCommentRequest{Body: "x"})
		if status.Code(err) != codes.Unauthenticated {
			t.Fatalf("expected Unauthenticated, got %v", err)
		}
	}
}

func TestCreateComment_Validation(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.CreateComment(as("1"), &CreateCommentRequest{Body: "   "})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	var found bool
	for _, d := range status.Convert(err).Details() {
		if br, ok := d.(*errdetails.BadRequest); ok && len(br.FieldViolations) == 1 && br.FieldViolations[0].Field == "body" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected BadRequest field violation for body")
	}

	parent := int64(999)
	_, err = h.client.CreateComment(as("1"), &CreateCommentRequest{Body: "x", ParentID: &parent})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("missing parent: expected NotFound, got %v", err)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	h := newHarness(t)
	created, err := h.client.CreateComment(as("1"), &CreateCommentRequest{Body: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Comment.ID

	_, err = h.client.DeleteComment(as("2"), &CommentIDRequest{ID: id})
	if status.Code(err) != codes.PermissionDenied || errorReason(t, err) != "NOT_OWNER" {
		t.Fatalf("non-owner delete: expected PermissionDenied/NOT_OWNER, got %v", err)
	}

	del, err := h.client.DeleteComment(as("1"), &CommentIDRequest{ID: id})
	if err != nil || del.AlreadyDeleted {
		t.Fatalf("delete: %+v %v", del, err)
	}
	del, err = h.client.DeleteComment(as("1"), &CommentIDRequest{ID: id})
	if err != nil || !del.AlreadyDeleted {
		t.Fatalf("repeat delete: %+v %v", del, err)
	}

	deleted, err := h.client.ListOwnDeleted(as("1"))
	if err != nil || len(deleted.Comments) != 1 {
		t.Fatalf("list deleted: %+v %v", deleted, err)
	}

	restored, err := h.client.RestoreComment(as("1"), &CommentIDRequest{ID: id})
	if err != nil || restored.Comment.Deleted {
		t.Fatalf("restore: %+v %v", restored, err)
	}
}

func TestRestore_WindowExpired(t *testing.T) {
	h := newHarness(t)
	created, _ := h.client.CreateComment(as("1"), &CreateCommentRequest{Body: "late"})
	if _, err := h.client.DeleteComment(as("1"), &CommentIDRequest{ID: created.Comment.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	h.now = h.now.Add(20 * time.Minute)
	_, err := h.client.RestoreComment(as("1"), &CommentIDRequest{ID: created.Comment.ID})
	if status.Code(err) != codes.PermissionDenied || errorReason(t, err) != "RESTORE_WINDOW_EXPIRED" {
		t.Fatalf("expected PermissionDenied/RESTORE_WINDOW_EXPIRED, got %v", err)
	}
}

func TestListRepliesAndThread(t *testing.T) {
	h := newHarness(t)
	root, _ := h.client.CreateComment(as("1"), &CreateCommentRequest{Body: "root"})
	rootID := root.Comment.ID
	for i := 0; i < 3; i++ {
		if _, err := h.client.CreateComment(as("2"), &CreateCommentRequest{Body: "reply", ParentID: &rootID}); err != nil {
			t.Fatalf("reply %d: %v", i, err)
		}
	}

	page, err := h.client.ListReplies(context.Background(), &ListRepliesRequest{ParentID: rootID, Limit: 2})
	if err != nil || len(page.Comments) != 2 || page.NextCursor == nil {
		t.Fatalf("first page: %+v %v", page, err)
	}
	page, err = h.client.ListReplies(context.Background(), &ListRepliesRequest{ParentID: rootID, Limit: 2, Cursor: *page.NextCursor})
	if err != nil || len(page.Comments) != 1 || page.NextCursor != nil {
		t.Fatalf("second page: %+v %v", page, err)
	}

	_, err = h.client.ListReplies(context.Background(), &ListRepliesRequest{ParentID: rootID, Cursor: "!!"})
	if status.Code(err) != codes.InvalidArgument || errorReason(t, err) != "INVALID_CURSOR" {
		t.Fatalf("expected InvalidArgument/INVALID_CURSOR, got %v", err)
	}

	th, err := h.client.GetThread(context.Background(), &GetThreadRequest{RootID: rootID})
	if err != nil || len(th.Nodes) != 1 || len(th.Nodes[0].Children) != 3 {
		t.Fatalf("thread: %+v %v", th, err)
	}
	neg := -1
	_, err = h.client.GetThread(context.Background(), &GetThreadRequest{RootID: rootID, Depth: &neg})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("negative depth: expected InvalidArgument, got %v", err)
	}

	top, err := h.client.ListTopLevel(context.Background())
	if err != nil || len(top.Comments) != 1 {
		t.Fatalf("top level: %+v %v", top, err)
	}
}

func TestToStatus_Unavailable(t *testing.T) {
	err := toStatus(zap.NewNop(), "GetThread", store.ErrUnavailable)
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}
