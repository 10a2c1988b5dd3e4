package http

import (
	"net/http"
	"strconv"

	"hausmate/internal/core"
	"hausmate/internal/services"
)

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// billFormData feeds the bill creation template.
type billFormData struct {
	User      *core.User
	HouseID   int64
	Roommates []core.Roommate
	Error     string
}

func (s *Server) handleBillForm(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	roommates, err := s.ledger.Roommates(r.Context(), user.ID, houseID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	s.render(w, r, "bill_form.html", billFormData{User: user, HouseID: houseID, Roommates: roommates})
}

func (s *Server) handleBillCreate(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	amountStr := sanitizeInput(r.Form.Get("amount"))
	ownerID, _ := strconv.ParseInt(r.Form.Get("owner"), 10, 64)

	rerender := func(status int, msg string) {
		roommates, err := s.ledger.Roommates(r.Context(), user.ID, houseID)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		s.renderStatus(w, r, status, "bill_form.html", billFormData{
			User: user, HouseID: houseID, Roommates: roommates, Error: msg,
		})
	}

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		rerender(http.StatusUnprocessableEntity, "Invalid amount")
		return
	}
	due, err := parseDueDate(r.Form.Get("due_date"))
	if err != nil {
		rerender(http.StatusUnprocessableEntity, "Invalid due date, use YYYY-MM-DD")
		return
	}

	bill, err := s.ledger.CreateBill(r.Context(), user.ID, houseID, ownerID, name, core.Money{Cents: cents}, due)
	if err != nil {
		switch {
		case isValidationError(err):
			rerender(http.StatusUnprocessableEntity, err.Error())
		default:
			serviceError(w, r, err)
		}
		return
	}
	http.Redirect(w, r, "/houses/"+formatID(houseID)+"/bills/"+formatID(bill.ID), http.StatusSeeOther)
}

func (s *Server) handleBillDetail(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	billID, ok := pathID(w, r, "billID")
	if !ok {
		return
	}

	detail, err := s.ledger.BillDetail(r.Context(), user.ID, houseID, billID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	s.render(w, r, "bill_detail.html", struct {
		User    *core.User
		HouseID int64
		Detail  *services.BillDetail
	}{user, houseID, detail})
}

// paymentFormData feeds the payment event template.
type paymentFormData struct {
	User    *core.User
	Payment *core.Payment
	Bill    *core.Bill
	Error   string
}

func (s *Server) handlePaymentForm(w http.ResponseWriter, r *http.Request, user *core.User) {
	paymentID, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	payment, bill, err := s.ledger.PaymentContext(r.Context(), user.ID, paymentID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	s.render(w, r, "payment_form.html", paymentFormData{User: user, Payment: payment, Bill: bill})
}

func (s *Server) handlePaymentCreate(w http.ResponseWriter, r *http.Request, user *core.User) {
	paymentID, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	rerender := func(msg string) {
		payment, bill, err := s.ledger.PaymentContext(r.Context(), user.ID, paymentID)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "payment_form.html", paymentFormData{
			User: user, Payment: payment, Bill: bill, Error: msg,
		})
	}

	cents, err := core.ParseDecimalToCents(sanitizeInput(r.Form.Get("amount")))
	if err != nil {
		rerender("Invalid amount")
		return
	}

	_, err = s.ledger.RecordPayment(r.Context(), user.ID, paymentID, core.Money{Cents: cents})
	if err != nil {
		switch {
		case isValidationError(err):
			rerender(err.Error())
		default:
			serviceError(w, r, err)
		}
		return
	}

	_, bill, err := s.ledger.PaymentContext(r.Context(), user.ID, paymentID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/houses/"+formatID(bill.HouseID)+"/bills/"+formatID(bill.ID), http.StatusSeeOther)
}
