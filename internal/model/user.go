// internal/model/user.go
package model

type User struct {
    ID     int64  `db:"id" json:"id"`
    Name   string `db:"name" json:"name"`
    Email  string `db:"email" json:"email"`
    Role   string `db:"role" json:"role"`
    Status string `db:"status" json:"status"`
}
