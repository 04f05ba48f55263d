package lspprov

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/ksense/internal/logging"
)

// Client is a language server connection limited to what completion needs:
// document sync and textDocument/completion.
type Client struct {
	conn   jsonrpc2.Conn
	server protocol.Server
	log    *logrus.Entry
	closer io.Closer

	caps protocol.ServerCapabilities

	mu     sync.Mutex
	docs   map[protocol.DocumentURI]*document
	closed bool
}

type document struct {
	version int32
	text    string
}

// stdioConn joins a server process's stdout and stdin.
type stdioConn struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (s *stdioConn) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Start launches command and initializes it as a language server rooted
// at root. The process outlives ctx; ctx bounds initialization only.
func Start(ctx context.Context, command string, args []string, root string, log logrus.FieldLogger) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = root
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lspprov: stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return nil, fmt.Errorf("lspprov: stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		_ = stdout.Close()
		return nil, fmt.Errorf("lspprov: start %s: %w", command, err)
	}

	rwc := &stdioConn{Reader: stdout, Writer: stdin, closers: []io.Closer{stdin, stdout, processKiller{cmd}}}
	c, err := Dial(ctx, rwc, root, log)
	if err != nil {
		_ = rwc.Close()
		return nil, err
	}
	return c, nil
}

type processKiller struct{ cmd *exec.Cmd }

func (p processKiller) Close() error {
	if p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
	return nil
}

// Dial initializes a language server reachable over rwc.
func Dial(ctx context.Context, rwc io.ReadWriteCloser, root string, log logrus.FieldLogger) (*Client, error) {
	entry := logging.Component(log, "lsp")
	zl, zw := zapLogger(entry)

	c := &Client{
		log:    entry,
		closer: zw,
		docs:   make(map[protocol.DocumentURI]*document),
	}
	_, c.conn, c.server = protocol.NewClient(context.Background(), c, jsonrpc2.NewStream(rwc), zl)

	result, err := c.server.Initialize(ctx, &protocol.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   uri.File(root),
		Capabilities: protocol.ClientCapabilities{
			TextDocument: &protocol.TextDocumentClientCapabilities{
				Completion: &protocol.CompletionTextDocumentClientCapabilities{
					CompletionItem: &protocol.CompletionTextDocumentClientCapabilitiesItem{
						SnippetSupport: true,
					},
					ContextSupport: true,
				},
			},
		},
		ClientInfo: &protocol.ClientInfo{Name: "ksense"},
	})
	if err != nil {
		_ = c.conn.Close()
		return nil, fmt.Errorf("lspprov: initialize: %w", err)
	}
	c.caps = result.Capabilities
	if err := c.conn.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		_ = c.conn.Close()
		return nil, fmt.Errorf("lspprov: initialized: %w", err)
	}

	name := ""
	if result.ServerInfo != nil {
		name = result.ServerInfo.Name
	}
	c.log.WithFields(logrus.Fields{
		"server":   name,
		"triggers": c.TriggerCharacters(),
	}).Debug("language server initialized")
	return c, nil
}

// zapLogger routes the protocol package's debug output into log at trace
// level. The returned closer releases the pipe.
func zapLogger(log *logrus.Entry) (*zap.Logger, io.Closer) {
	if log.Logger == nil || !log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		return zap.NewNop(), io.NopCloser(nil)
	}
	w := log.WriterLevel(logrus.TraceLevel)
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), zapcore.DebugLevel)), w
}

// TriggerCharacters returns the characters the server asked to complete on.
func (c *Client) TriggerCharacters() []string {
	if c.caps.CompletionProvider == nil {
		return nil
	}
	return c.caps.CompletionProvider.TriggerCharacters
}

// SupportsCompletion reports whether the server offers completion.
func (c *Client) SupportsCompletion() bool {
	return c.caps.CompletionProvider != nil
}

// Sync opens the document or sends its full text if it changed since the
// last sync.
func (c *Client) Sync(ctx context.Context, doc protocol.DocumentURI, language, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	d, ok := c.docs[doc]
	if !ok {
		c.docs[doc] = &document{version: 1, text: text}
		return c.conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{
				URI:        doc,
				LanguageID: protocol.LanguageIdentifier(language),
				Version:    1,
				Text:       text,
			},
		})
	}
	if d.text == text {
		return nil
	}
	d.version++
	d.text = text
	return c.conn.Notify(ctx, protocol.MethodTextDocumentDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: doc},
			Version:                d.version,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

// completionResult accepts both CompletionList and CompletionItem[]
// responses.
type completionResult struct {
	protocol.CompletionList
}

func (r *completionResult) UnmarshalJSON(b []byte) error {
	switch res := gjson.ParseBytes(b); {
	case res.IsArray():
		return json.Unmarshal(b, &r.Items)
	case res.IsObject():
		return json.Unmarshal(b, &r.CompletionList)
	default:
		return nil
	}
}

// Complete requests completion at pos. trigger is the character that
// started completion, or empty for an explicit request.
func (c *Client) Complete(ctx context.Context, doc protocol.DocumentURI, pos protocol.Position, trigger string) (*protocol.CompletionList, error) {
	if !c.SupportsCompletion() {
		return nil, ErrNoCompletion
	}
	cctx := &protocol.CompletionContext{TriggerKind: protocol.CompletionTriggerKindInvoked}
	if trigger != "" {
		cctx = &protocol.CompletionContext{
			TriggerKind:      protocol.CompletionTriggerKindTriggerCharacter,
			TriggerCharacter: trigger,
		}
	}
	params := &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: doc},
			Position:     pos,
		},
		Context: cctx,
	}

	var result completionResult
	if err := protocol.Call(ctx, c.conn, protocol.MethodTextDocumentCompletion, params, &result); err != nil {
		return nil, err
	}
	return &result.CompletionList, nil
}

// Close shuts the server down politely, then drops the connection.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if err := c.server.Shutdown(ctx); err != nil {
		c.log.WithError(err).Debug("shutdown")
	} else {
		_ = c.server.Exit(ctx)
	}
	err := c.conn.Close()
	_ = c.closer.Close()
	return err
}

// Done is closed when the connection terminates.
func (c *Client) Done() <-chan struct{} { return c.conn.Done() }

// LogMessage forwards window/logMessage to the logger.
func (c *Client) LogMessage(_ context.Context, params *protocol.LogMessageParams) error {
	entry := c.log.WithField("source", "server")
	switch params.Type {
	case protocol.MessageTypeError:
		entry.Warn(params.Message)
	case protocol.MessageTypeWarning:
		entry.Info(params.Message)
	default:
		entry.Debug(params.Message)
	}
	return nil
}

// ShowMessage is logged like LogMessage.
func (c *Client) ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error {
	return c.LogMessage(ctx, &protocol.LogMessageParams{Type: params.Type, Message: params.Message})
}

// The remaining protocol.Client methods are accepted and ignored.

func (c *Client) Progress(context.Context, *protocol.ProgressParams) error { return nil }
func (c *Client) WorkDoneProgressCreate(context.Context, *protocol.WorkDoneProgressCreateParams) error {
	return nil
}
func (c *Client) PublishDiagnostics(context.Context, *protocol.PublishDiagnosticsParams) error {
	return nil
}
func (c *Client) ShowMessageRequest(context.Context, *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	return nil, nil
}
func (c *Client) Telemetry(context.Context, interface{}) error                         { return nil }
func (c *Client) RegisterCapability(context.Context, *protocol.RegistrationParams) error { return nil }
func (c *Client) UnregisterCapability(context.Context, *protocol.UnregistrationParams) error {
	return nil
}
func (c *Client) ApplyEdit(context.Context, *protocol.ApplyWorkspaceEditParams) (bool, error) {
	return false, nil
}
func (c *Client) Configuration(context.Context, *protocol.ConfigurationParams) ([]interface{}, error) {
	return nil, nil
}
func (c *Client) WorkspaceFolders(context.Context) ([]protocol.WorkspaceFolder, error) {
	return nil, nil
}

var _ protocol.Client = (*Client)(nil)
