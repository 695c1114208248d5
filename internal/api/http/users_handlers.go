package http

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studyhall/studyhall-lms/internal/rbac"
)

type userRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`               // student | instructor | admin
	Password string `json:"password,omitempty"` // plaintext optional, hashed on write
}

// BulkUpsertUsersHandler accepts either a JSON array body or a multipart
// file= upload (CSV or JSON): username,role[,password] per CSV line.
func BulkUpsertUsersHandler(db *sql.DB) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var rows []userRow
		ct := r.Header.Get("Content-Type")
		if strings.HasPrefix(ct, "multipart/form-data") {
			f, _, err := r.FormFile("file")
			if err != nil {
				nethttp.Error(w, "file required", nethttp.StatusBadRequest)
				return
			}
			defer f.Close()
			buf := make([]byte, 1)
			if _, err := f.Read(buf); err != nil {
				nethttp.Error(w, "empty file", nethttp.StatusBadRequest)
				return
			}
			if s, ok := f.(io.Seeker); ok {
				_, _ = s.Seek(0, io.SeekStart)
			}
			if buf[0] == '[' || buf[0] == '{' {
				if err := json.NewDecoder(f).Decode(&rows); err != nil {
					nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
					return
				}
			} else {
				rs, err := parseUsersCSV(f)
				if err != nil {
					nethttp.Error(w, "bad csv: "+err.Error(), nethttp.StatusBadRequest)
					return
				}
				rows = rs
			}
		} else {
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				nethttp.Error(w, "expected JSON array or multipart file", nethttp.StatusBadRequest)
				return
			}
		}
		ins, upd, err := upsertUsers(r.Context(), db, rows)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"inserted": ins, "updated": upd})
	}
}

func ListUsersHandler(db *sql.DB) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		role := r.URL.Query().Get("role")
		var rows *sql.Rows
		var err error
		if role == "" {
			rows, err = db.QueryContext(r.Context(), `SELECT id, username, role FROM users ORDER BY username`)
		} else {
			rows, err = db.QueryContext(r.Context(), `SELECT id, username, role FROM users WHERE role=$1 ORDER BY username`, role)
		}
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		defer rows.Close()
		out := []userRow{}
		for rows.Next() {
			var u userRow
			if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
				nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
				return
			}
			out = append(out, u)
		}
		writeJSON(w, nethttp.StatusOK, out)
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func ChangePasswordHandler(db *sql.DB) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
			nethttp.Error(w, "new password required", nethttp.StatusBadRequest)
			return
		}
		var storedHash string
		err := db.QueryRowContext(r.Context(), `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&storedHash)
		if errors.Is(err, sql.ErrNoRows) {
			nethttp.Error(w, "user not found", nethttp.StatusNotFound)
			return
		}
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.OldPassword)) != nil {
			nethttp.Error(w, "incorrect old password", nethttp.StatusForbidden)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), 12)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		if _, err := db.ExecContext(r.Context(), `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), userID); err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func parseUsersCSV(r io.Reader) ([]userRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var out []userRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 2 || strings.EqualFold(rec[0], "username") {
			continue
		}
		u := userRow{Username: strings.TrimSpace(rec[0]), Role: strings.TrimSpace(rec[1])}
		if len(rec) > 2 {
			u.Password = rec[2]
		}
		out = append(out, u)
	}
	return out, nil
}

func upsertUsers(ctx context.Context, db *sql.DB, rows []userRow) (inserted, updated int, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, u := range rows {
		if u.Username == "" || u.Role == "" {
			continue
		}
		var hash string
		if u.Password != "" {
			h, herr := bcrypt.GenerateFromPassword([]byte(u.Password), 12)
			if herr != nil {
				return 0, 0, herr
			}
			hash = string(h)
		}

		var existingID string
		qerr := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username=$1`, u.Username).Scan(&existingID)
		switch {
		case errors.Is(qerr, sql.ErrNoRows):
			id := u.ID
			if id == "" {
				id = uuid.NewString()
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, role, password_hash) VALUES ($1,$2,$3,$4)`,
				id, u.Username, u.Role, hash); err != nil {
				return 0, 0, err
			}
			inserted++
		case qerr != nil:
			return 0, 0, qerr
		default:
			if hash != "" {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET role=$1, password_hash=$2 WHERE id=$3`, u.Role, hash, existingID)
			} else {
				_, err = tx.ExecContext(ctx,
					`UPDATE users SET role=$1 WHERE id=$2`, u.Role, existingID)
			}
			if err != nil {
				return 0, 0, err
			}
			updated++
		}
	}
	return inserted, updated, tx.Commit()
}
