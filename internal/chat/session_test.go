package chat_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/relaychat/internal/chat"
	"github.com/omochice/relaychat/internal/chat/chattest"
	"github.com/omochice/relaychat/pkg/protocol"
)

func startSession(t *testing.T, name string) (*chat.Session, *chattest.Conn) {
	t.Helper()
	conn := chattest.NewConn("127.0.0.1:4000")
	s := chat.NewSession(conn, name, chat.WithSessionLogger(zerolog.Nop()))
	s.Start()
	t.Cleanup(func() { _ = s.Close() })
	return s, conn
}

func TestSession_LoggerCarriesIdentity(t *testing.T) {
	var buf bytes.Buffer
	s := chat.NewSession(chattest.NewConn("127.0.0.1:4000"), "alice", chat.WithSessionLogger(zerolog.New(&buf)))

	s.Logger().Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, `"user":"alice"`)
	assert.Contains(t, out, `"remote":"127.0.0.1:4000"`)
	assert.Contains(t, out, `"session":"`+s.ID()+`"`)
}

func TestSession_Identity(t *testing.T) {
	s, _ := startSession(t, "alice")

	assert.Equal(t, "alice", s.Username())
	assert.Equal(t, "127.0.0.1:4000", s.RemoteAddr())
	assert.NotEmpty(t, s.ID())
	assert.True(t, s.Connected())
}

func TestSession_Send(t *testing.T) {
	s, conn := startSession(t, "alice")

	require.NoError(t, s.Send(context.Background(), protocol.EncodeString("hi")))

	assert.Equal(t, []string{"hi"}, conn.Texts())
}

func TestSession_SendAfterClose(t *testing.T) {
	s, _ := startSession(t, "alice")
	require.NoError(t, s.Close())

	err := s.Send(context.Background(), protocol.EncodeString("hi"))

	require.ErrorIs(t, err, chat.ErrNotConnected)
	var sendErr *chat.SendError
	assert.ErrorAs(t, err, &sendErr)
}

func TestSession_SendTransportFault(t *testing.T) {
	s, conn := startSession(t, "alice")
	boom := errors.New("broken pipe")
	conn.FailWrites(boom)

	err := s.Send(context.Background(), protocol.EncodeString("hi"))

	assert.ErrorIs(t, err, chat.ErrTransport)
	assert.ErrorIs(t, err, boom)
}

func TestSession_ReceiveAvailable(t *testing.T) {
	s, conn := startSession(t, "alice")

	frame, err := s.ReceiveAvailable()
	require.NoError(t, err)
	assert.Nil(t, frame)

	conn.Feed(protocol.EncodeString("hello"))
	require.Eventually(t, func() bool {
		frame, err = s.ReceiveAvailable()
		return err == nil && frame != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "String|hello", string(frame))
}

func TestSession_Receive(t *testing.T) {
	s, conn := startSession(t, "alice")
	conn.Feed(protocol.EncodeString("hello"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := s.Receive(ctx)

	require.NoError(t, err)
	assert.Equal(t, "String|hello", string(frame))
}

func TestSession_ReceiveContextDone(t *testing.T) {
	s, _ := startSession(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Receive(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSession_HangupDisconnects(t *testing.T) {
	s, conn := startSession(t, "alice")
	conn.Feed(protocol.EncodeString("last words"))
	conn.Hangup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	frame, err := s.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "String|last words", string(frame))

	_, err = s.Receive(ctx)
	assert.ErrorIs(t, err, chat.ErrTransport)
	var recvErr *chat.ReceiveError
	assert.ErrorAs(t, err, &recvErr)
	assert.False(t, s.Connected())
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	s, conn := startSession(t, "alice")

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.False(t, s.Connected())
	assert.True(t, conn.IsClosed())

	_, err := s.ReceiveAvailable()
	assert.ErrorIs(t, err, chat.ErrTransport)
}

func TestSession_CloseWithoutStart(t *testing.T) {
	conn := chattest.NewConn("127.0.0.1:4000")
	s := chat.NewSession(conn, "alice", chat.WithSessionLogger(zerolog.Nop()))

	assert.NoError(t, s.Close())
	s.Start()
	assert.False(t, s.Connected())
}

func TestSession_ReceiveUnblocksOnClose(t *testing.T) {
	s, _ := startSession(t, "alice")

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Receive(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, chat.ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("Receive did not return after Close")
	}
}
