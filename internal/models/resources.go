package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Appointment struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DonorID      primitive.ObjectID `bson:"donorId" json:"donorId"`
	DonorName    string             `bson:"donorName" json:"donorName"`
	HospitalName string             `bson:"hospitalName" json:"hospitalName"`
	Type         AppointmentType    `bson:"type" json:"type"`
	Date         time.Time          `bson:"date" json:"date"`
	Status       AppointmentStatus  `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type BloodStock struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HospitalID primitive.ObjectID `bson:"hospitalId" json:"hospitalId"`
	BloodGroup string             `bson:"bloodGroup" json:"bloodGroup"`
	Units      int                `bson:"units" json:"units"`
	ExpiryDate time.Time          `bson:"expiryDate" json:"expiryDate"`
	Status     StockStatus        `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Refresh derives Status from ExpiryDate.
func (s *BloodStock) Refresh(now time.Time) {
	if s.ExpiryDate.After(now) {
		s.Status = StockAvailable
	} else {
		s.Status = StockExpired
	}
}

type RecipientRequest struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID `bson:"recipientId" json:"recipientId"`
	HospitalID  primitive.ObjectID `bson:"hospitalId" json:"hospitalId"`
	BloodGroup  string             `bson:"bloodGroup" json:"bloodGroup"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	RequestType RequestType        `bson:"requestType" json:"requestType"`
	Status      RequestStatus      `bson:"status" json:"status"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Item types recorded in the delete log.
const (
	ItemDonor            = "Donor"
	ItemHospital         = "Hospital"
	ItemRecipient        = "Recipient"
	ItemAppointment      = "Appointment"
	ItemBloodStock       = "BloodStock"
	ItemRecipientRequest = "RecipientRequest"
)

// DeleteLog keeps a verbatim snapshot of a deleted document so it can be restored.
type DeleteLog struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ItemType    string              `bson:"itemType" json:"itemType"`
	Snapshot    bson.M              `bson:"snapshot" json:"snapshot"`
	DeletedBy   *primitive.ObjectID `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
	DeletedAt   time.Time           `bson:"deletedAt" json:"deletedAt"`
	Recovered   bool                `bson:"recovered" json:"recovered"`
	RecoveredAt *time.Time          `bson:"recoveredAt,omitempty" json:"recoveredAt,omitempty"`
}

// JobRun records the latest execution of a background job.
type JobRun struct {
	Job        string    `bson:"job" json:"job"`
	Status     string    `bson:"status" json:"status"`
	Affected   int64     `bson:"affected" json:"affected"`
	Error      string    `bson:"error,omitempty" json:"error,omitempty"`
	StartedAt  time.Time `bson:"startedAt" json:"startedAt"`
	FinishedAt time.Time `bson:"finishedAt" json:"finishedAt"`
}

func stamp(id *primitive.ObjectID, created, updated *time.Time, now time.Time) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func (a *Appointment) DocID() primitive.ObjectID { return a.ID }
func (a *Appointment) Stamp(now time.Time)       { stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt, now) }

func (s *BloodStock) DocID() primitive.ObjectID { return s.ID }
func (s *BloodStock) Stamp(now time.Time)       { stamp(&s.ID, &s.CreatedAt, &s.UpdatedAt, now) }

func (r *RecipientRequest) DocID() primitive.ObjectID { return r.ID }
func (r *RecipientRequest) Stamp(now time.Time)       { stamp(&r.ID, &r.CreatedAt, &r.UpdatedAt, now) }
