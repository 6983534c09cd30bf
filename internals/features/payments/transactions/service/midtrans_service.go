package service

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"unicode/utf8"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	model "tutorhub_backend/internals/features/payments/transactions/model"
)

/* =========================================================
   Midtrans Snap
========================================================= */

// Gateway opens a hosted checkout for a pending transaction.
type Gateway interface {
	CreateSnap(t *model.Transaction, cust Customer) (token, redirectURL string, err error)
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type MidtransGateway struct {
	Client    snap.Client
	ServerKey string
}

// InitMidtrans must be called at bootstrap; production selects the live environment.
func InitMidtrans(serverKey string, production bool) *MidtransGateway {
	g := &MidtransGateway{ServerKey: serverKey}
	if production {
		g.Client.New(serverKey, midtrans.Production)
	} else {
		g.Client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

func (g *MidtransGateway) CreateSnap(t *model.Transaction, cust Customer) (string, string, error) {
	if t.TransactionAmount <= 0 {
		return "", "", errors.New("invalid transaction amount")
	}
	if t.TransactionReference == "" {
		return "", "", errors.New("transaction reference is required (used as OrderID)")
	}
	first, last := splitName(cust.Name)

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  t.TransactionReference,
			GrossAmt: t.TransactionAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: first,
			LName: last,
			Email: cust.Email,
			Phone: cust.Phone,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    t.TransactionLinkID.String(),
				Price: t.TransactionAmount,
				Qty:   1,
				Name:  truncate(t.TransactionLinkTitle, 50),
			},
		},
		CustomField1: truncate(t.TransactionStudentID, 40),
	}

	resp, err := g.Client.CreateTransaction(req)
	if err != nil {
		return "", "", err
	}
	return resp.Token, resp.RedirectURL, nil
}

// VerifySignature checks sha512(order_id + status_code + gross_amount + server_key).
func VerifySignature(orderID, statusCode, grossAmount, serverKey, signature string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	want := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(signature))) == 1
}

/* =========================================================
   Utils
========================================================= */

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if i := strings.LastIndex(full, " "); i > 0 {
		return full[:i], full[i+1:]
	}
	return full, ""
}

// truncate keeps at most n characters.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
