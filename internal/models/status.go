package models

// AppointmentStatus follows Pending -> {Approved, Cancelled}, Approved -> {Completed, Cancelled}.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "Pending"
	AppointmentApproved  AppointmentStatus = "Approved"
	AppointmentCompleted AppointmentStatus = "Completed"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:  {AppointmentApproved, AppointmentCancelled},
	AppointmentApproved: {AppointmentCompleted, AppointmentCancelled},
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentApproved, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// CanTransition reports whether s may move to next. Staying put is always allowed.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	if s == next {
		return next.Valid()
	}
	for _, t := range appointmentTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// RequestStatus follows Pending -> {Approved, Rejected}, Approved -> Fulfilled.
type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestApproved  RequestStatus = "Approved"
	RequestRejected  RequestStatus = "Rejected"
	RequestFulfilled RequestStatus = "Fulfilled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:  {RequestApproved, RequestRejected},
	RequestApproved: {RequestFulfilled},
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestFulfilled:
		return true
	}
	return false
}

func (s RequestStatus) CanTransition(next RequestStatus) bool {
	if s == next {
		return next.Valid()
	}
	for _, t := range requestTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type StockStatus string

const (
	StockAvailable StockStatus = "Available"
	StockExpired   StockStatus = "Expired"
)

type AppointmentType string

const (
	AppointmentBloodTest AppointmentType = "Blood Test"
	AppointmentDonation  AppointmentType = "Donation"
)

type RequestType string

const (
	RequestNormal    RequestType = "Normal"
	RequestEmergency RequestType = "Emergency"
)
