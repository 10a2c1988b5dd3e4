package http

import (
	"net/http"

	"hausmate/internal/core"
	"hausmate/internal/services"
)

func (s *Server) handleHouseList(w http.ResponseWriter, r *http.Request, user *core.User) {
	houses, err := s.ledger.ListHouses(r.Context(), user.ID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	s.render(w, r, "house_list.html", struct {
		User   *core.User
		Houses []core.House
	}{user, houses})
}

func (s *Server) handleHouseForm(w http.ResponseWriter, r *http.Request, user *core.User) {
	s.render(w, r, "house_form.html", struct {
		User  *core.User
		Error string
	}{user, ""})
}

func (s *Server) handleHouseCreate(w http.ResponseWriter, r *http.Request, user *core.User) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := sanitizeInput(r.Form.Get("name"))

	house, err := s.ledger.CreateHouse(r.Context(), user, name)
	if err != nil {
		s.renderStatus(w, r, http.StatusUnprocessableEntity, "house_form.html", struct {
			User  *core.User
			Error string
		}{user, err.Error()})
		return
	}
	http.Redirect(w, r, "/houses/"+formatID(house.ID), http.StatusSeeOther)
}

func (s *Server) handleHouseDetail(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}

	house, err := s.ledger.GetHouse(r.Context(), user.ID, houseID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	roommates, err := s.ledger.Roommates(r.Context(), user.ID, houseID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	bills, err := s.ledger.Bills(r.Context(), user.ID, houseID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	activity, err := s.ledger.Activity(r.Context(), user.ID, houseID, 20)
	if err != nil {
		serviceError(w, r, err)
		return
	}

	s.render(w, r, "house_detail.html", struct {
		User      *core.User
		House     *core.House
		Roommates []core.Roommate
		Bills     []core.Bill
		Activity  []core.ActivityEntry
	}{user, house, roommates, bills, activity})
}

func (s *Server) handleHouseUpdate(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := sanitizeInput(r.Form.Get("name"))

	if err := s.ledger.UpdateHouse(r.Context(), user.ID, houseID, name); err != nil {
		serviceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/houses/"+formatID(houseID), http.StatusSeeOther)
}

func (s *Server) handleHouseDelete(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	if err := s.ledger.DeleteHouse(r.Context(), user.ID, houseID); err != nil {
		serviceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/houses", http.StatusSeeOther)
}

func (s *Server) handleRoommateCreate(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := sanitizeInput(r.Form.Get("name"))

	if _, err := s.ledger.AddRoommate(r.Context(), user.ID, houseID, name); err != nil {
		serviceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/houses/"+formatID(houseID), http.StatusSeeOther)
}

func (s *Server) handleRoommateDetail(w http.ResponseWriter, r *http.Request, user *core.User) {
	houseID, ok := pathID(w, r, "houseID")
	if !ok {
		return
	}
	roommateID, ok := pathID(w, r, "roommateID")
	if !ok {
		return
	}

	detail, err := s.ledger.RoommateDetail(r.Context(), user.ID, houseID, roommateID)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	s.render(w, r, "roommate_detail.html", struct {
		User    *core.User
		HouseID int64
		Detail  *services.RoommateDetail
	}{user, houseID, detail})
}
