package weesql

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Handler implements http.Handler for the single-endpoint router controlled by a query action.
type Handler struct {
	d        *Dispatcher
	opts     Options
	drivers  *DriverRegistry
	sessions *sessionStore
	log      *zap.Logger
}

// NewHandler constructs a Handler over d with defaults applied.
func NewHandler(d *Dispatcher, o Options) *Handler {
	o = o.withDefaults()
	return &Handler{
		d:        d,
		opts:     o,
		drivers:  NewDriverRegistry(o.EnabledDrivers),
		sessions: newSessionStore(),
		log:      d.log.Named("http"),
	}
}

// Register mounts the handler on the provided mux at path.
func Register(mux *http.ServeMux, path string, h http.Handler) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	mux.Handle(path, h)
}

// Close closes every connection opened through the connect action.
func (h *Handler) Close() {
	h.sessions.closeAll()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")

	sess := h.sessions.ensure(w, r)
	token := ensureCSRFCookie(w, r, h.opts.SessionSecret)
	w.Header().Set(csrfHeaderKey, token)

	if r.Method == http.MethodPost && !verifyCSRF(r, h.opts.SessionSecret) {
		writeErrorMessage(w, r, "invalid or missing CSRF token")
		return
	}

	name := r.URL.Query().Get(h.opts.ActionParam)
	switch name {
	case "healthz":
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	case "readyz":
		h.handleReady(w, r, sess)
		return
	}

	action, err := ParseAction(name)
	if err != nil {
		writeErrorStatus(w, r, http.StatusNotFound, "unknown action: "+name)
		return
	}

	conn := h.sessions.conn(sess)
	switch action {
	case ActionConnect:
		h.handleConnect(w, r, sess)
	case ActionDisconnect:
		h.handleDisconnect(w, r, sess)
	case ActionError:
		h.run(w, r, conn, LastError{}, func(res Result) map[string]any {
			return map[string]any{"error": res.Text}
		})
	case ActionStatus:
		h.run(w, r, conn, Status{}, func(res Result) map[string]any {
			return map[string]any{"ok": res.Bool}
		})
	case ActionCleanse:
		h.run(w, r, conn, Cleanse{Value: r.FormValue("value")}, func(res Result) map[string]any {
			return map[string]any{"value": res.Text}
		})
	case ActionID:
		h.run(w, r, conn, IsID{Value: r.FormValue("value")}, func(res Result) map[string]any {
			return map[string]any{"id": res.Bool}
		})
	case ActionQuery, ActionArray, ActionRows:
		h.handleQuery(w, r, conn, action)
	case ActionSelect:
		req := Select{Table: formTable(r), Fields: r.FormValue("fields"), Where: formCondition(r)}
		h.run(w, r, conn, req, func(res Result) map[string]any {
			data := map[string]any{"found": res.Found, "row": res.Row}
			if f := splitCSV(req.Fields); len(f) == 1 && f[0] != "*" {
				data["value"] = res.Value
			}
			return data
		})
	case ActionCount:
		h.run(w, r, conn, Count{Table: formTable(r), Where: formCondition(r)}, func(res Result) map[string]any {
			return map[string]any{"count": res.Int}
		})
	case ActionNext:
		h.run(w, r, conn, Next{Table: formTable(r)}, func(res Result) map[string]any {
			return map[string]any{"next": res.Int}
		})
	case ActionLast:
		h.run(w, r, conn, Last{}, func(res Result) map[string]any {
			return map[string]any{"id": res.Int}
		})
	case ActionAdd, ActionEdit, ActionDelete:
		h.handleWrite(w, r, conn, action)
	default:
		writeErrorMessage(w, r, "action '"+name+"' is not available over HTTP")
	}
}

// run executes req and writes its data, or its error.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, conn *Conn, req Request, data func(Result) map[string]any) {
	res, err := h.d.ExecuteOn(r.Context(), conn, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeSuccessWithData(w, r, "ok", data(res))
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request, sess *Session) {
	conn := h.sessions.conn(sess)
	if conn == nil {
		conn = h.d.Default()
	}
	if conn != nil {
		if err := conn.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleConnect opens a connection and stores it in the session.
func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request, sess *Session) {
	if r.Method != http.MethodPost {
		writeErrorMessage(w, r, "connect must be POST")
		return
	}
	if !h.opts.AllowAdHocConnections {
		writeErrorStatus(w, r, http.StatusForbidden, "ad-hoc connections are disabled")
		return
	}
	driver := strings.TrimSpace(r.FormValue("driver"))
	if !h.drivers.IsEnabled(driver) {
		writeErrorStatus(w, r, http.StatusForbidden,
			"unsupported driver: "+driver+" (enabled: "+strings.Join(h.drivers.List(), ", ")+")")
		return
	}
	port := 0
	if p := strings.TrimSpace(r.FormValue("port")); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			writeErrorMessage(w, r, "invalid port")
			return
		}
		port = n
	}
	cfg := ConnConfig{
		Driver:   driver,
		Host:     strings.TrimSpace(r.FormValue("host")),
		Port:     port,
		User:     r.FormValue("user"),
		Password: r.FormValue("password"),
		Database: strings.TrimSpace(r.FormValue("database")),
		Charset:  strings.TrimSpace(r.FormValue("charset")),
	}
	res, err := h.d.ExecuteOn(r.Context(), nil, Connect{Config: cfg, Detached: true})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if prev := h.sessions.setConn(sess, res.Conn); prev != nil {
		_ = prev.Close()
	}
	h.log.Info("session connected", zap.String("session", sess.ID), zap.String("conn", res.Conn.ID), zap.String("driver", res.Conn.Driver))
	writeSuccessWithData(w, r, "connected", map[string]any{"driver": res.Conn.Driver, "id": res.Conn.ID})
}

// handleDisconnect closes the session connection.
func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request, sess *Session) {
	if r.Method != http.MethodPost {
		writeErrorMessage(w, r, "disconnect must be POST")
		return
	}
	if prev := h.sessions.setConn(sess, nil); prev != nil {
		if _, err := h.d.ExecuteOn(r.Context(), prev, Disconnect{}); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeSuccess(w, r, "disconnected")
}

// handleQuery runs a query and returns its rows (capped), or only the row count for rows.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request, conn *Conn, action Action) {
	req := Query{Table: formTable(r), Fields: splitCSV(r.FormValue("fields")), Where: formCondition(r)}
	res, err := h.d.ExecuteOn(r.Context(), conn, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rs := res.Set
	defer rs.Close()

	total, err := h.d.ExecuteOn(r.Context(), conn, NumRows{Result: rs})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if action == ActionRows {
		writeSuccessWithData(w, r, "ok", map[string]any{"rows": total.Int})
		return
	}

	limit := h.opts.MaxRows
	if action == ActionArray {
		limit = 1
	}
	out := make([]Row, 0, min(int(total.Int), limit))
	for len(out) < limit {
		next, err := h.d.ExecuteOn(r.Context(), conn, Fetch{Result: rs})
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !next.Found {
			break
		}
		out = append(out, next.Row)
	}
	writeSuccessWithData(w, r, "ok", map[string]any{
		"columns":   rs.Columns(),
		"rows":      out,
		"total":     total.Int,
		"truncated": int64(len(out)) < total.Int,
	})
}

// handleWrite runs add, edit and delete from form values.
// Params: table, cols (csv), vals (csv), id or where + arg..., confirm ("yes" when SafeMode)
func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request, conn *Conn, action Action) {
	if r.Method != http.MethodPost {
		writeErrorMessage(w, r, action.String()+" must be POST")
		return
	}
	if h.opts.ReadOnlyMode {
		writeErrorMessage(w, r, "read-only mode: "+action.String()+" is not allowed")
		return
	}
	if h.opts.SafeModeDefault && action != ActionAdd && strings.TrimSpace(r.FormValue("confirm")) != "yes" {
		writeErrorMessage(w, r, "confirmation required (set confirm=yes)")
		return
	}

	table := formTable(r)
	var values map[string]any
	if action != ActionDelete {
		var msg string
		values, msg = formValues(r)
		if msg != "" {
			writeErrorMessage(w, r, msg)
			return
		}
	}

	var req Request
	switch action {
	case ActionAdd:
		req = Add{Table: table, Values: values}
	case ActionEdit:
		req = Edit{Table: table, Values: values, Where: formCondition(r)}
	default:
		req = Delete{Table: table, Where: formCondition(r)}
	}
	res, err := h.d.ExecuteOn(r.Context(), conn, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data := map[string]any{"rows_affected": res.RowsAffected}
	if action == ActionAdd {
		data["id"] = res.Int
	}
	writeSuccessWithData(w, r, action.String()+" ok", data)
}

func formTable(r *http.Request) string {
	return strings.TrimSpace(r.FormValue("table"))
}

// formCondition reads id, or where with its repeated arg values.
func formCondition(r *http.Request) Condition {
	if id := strings.TrimSpace(r.FormValue("id")); id != "" {
		return ByID(id)
	}
	where := strings.TrimSpace(r.FormValue("where"))
	if where == "" {
		return Condition{}
	}
	_ = r.ParseForm()
	raw := r.Form["arg"]
	args := make([]any, len(raw))
	for i, a := range raw {
		args[i] = a
	}
	return Where(where, args...)
}

// formValues pairs the cols and vals CSV lists.
func formValues(r *http.Request) (map[string]any, string) {
	cols := splitCSV(strings.TrimSpace(r.FormValue("cols")))
	vals := strings.Split(r.FormValue("vals"), ",")
	if len(cols) == 0 {
		return nil, "cols and vals are required"
	}
	if len(cols) != len(vals) {
		return nil, "number of cols must equal number of vals"
	}
	out := make(map[string]any, len(cols))
	for i, c := range cols {
		out[c] = strings.TrimSpace(vals[i])
	}
	return out, ""
}
