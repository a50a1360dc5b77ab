// internal/model/customer.go
package model

type Customer struct {
    ID      int64  `db:"id" json:"id"`
    Name    string `db:"name" json:"name"`
    Email   string `db:"email" json:"email"`
    Phone   string `db:"phone" json:"phone,omitempty"`
    Company string `db:"company" json:"company,omitempty"`
    Status  string `db:"status" json:"status"`
}

// Lead points at the customer that carries its contact details.
type Lead struct {
    ID         int64  `db:"id" json:"id"`
    CustomerID *int64 `db:"customer_id" json:"customer_id,omitempty"`
    Status     string `db:"status" json:"status"`
    Source     string `db:"source" json:"source"`
}
