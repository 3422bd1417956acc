package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blueberryplanner/blueberry/internal/model"
)

type MedicineStore struct {
	db *sql.DB
}

func NewMedicineStore(db *sql.DB) *MedicineStore {
	return &MedicineStore{db: db}
}

const medicineCols = `id, family_id, name, dosage, schedule, assigned_to, active, inventory, start_date, end_date, created_by, created_at`

func scanMedicine(scanner interface{ Scan(...any) error }) (*model.Medicine, error) {
	var m model.Medicine
	var schedule, assignedTo, startDate, endDate, createdBy sql.NullString

	err := scanner.Scan(
		&m.ID, &m.FamilyID, &m.Name, &m.Dosage, &schedule, &assignedTo,
		&m.Active, &m.Inventory, &startDate, &endDate, &createdBy, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if schedule.Valid && schedule.String != "" {
		var ms model.MedicineSchedule
		// A schedule that fails to parse is treated as absent; the
		// scheduler then skips the medicine instead of failing the list.
		if err := json.Unmarshal([]byte(schedule.String), &ms); err == nil {
			m.Schedule = &ms
		}
	}
	m.AssignedTo = nullStr(assignedTo)
	m.StartDate = nullStr(startDate)
	m.EndDate = nullStr(endDate)
	m.CreatedBy = nullStr(createdBy)
	return &m, nil
}

// NewMedicine carries the fields needed to create a medicine row.
type NewMedicine struct {
	FamilyID   string
	Name       string
	Dosage     string
	Schedule   *model.MedicineSchedule
	AssignedTo *string
	Active     bool
	Inventory  int
	StartDate  *string
	EndDate    *string
	CreatedBy  *string
}

func (s *MedicineStore) Create(nm NewMedicine) (*model.Medicine, error) {
	id := uuid.NewString()

	schedule, err := marshalSchedule(nm.Schedule)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO medicines (id, family_id, name, dosage, schedule, assigned_to, active, inventory, start_date, end_date, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nm.FamilyID, nm.Name, nm.Dosage, schedule, nullArg(nm.AssignedTo), nm.Active,
		nm.Inventory, nullArg(nm.StartDate), nullArg(nm.EndDate), nullArg(nm.CreatedBy), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert medicine: %w", err)
	}
	return s.GetByID(id)
}

func marshalSchedule(ms *model.MedicineSchedule) (sql.NullString, error) {
	if ms == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ms)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal schedule: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func (s *MedicineStore) GetByID(id string) (*model.Medicine, error) {
	row := s.db.QueryRow(`SELECT `+medicineCols+` FROM medicines WHERE id = ?`, id)
	m, err := scanMedicine(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return m, nil
}

func (s *MedicineStore) ListByFamily(familyID string) ([]model.Medicine, error) {
	rows, err := s.db.Query(
		`SELECT `+medicineCols+` FROM medicines WHERE family_id = ? ORDER BY created_at ASC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()
	return collectMedicines(rows)
}

func (s *MedicineStore) ListByAssignee(familyID, userID string) ([]model.Medicine, error) {
	rows, err := s.db.Query(
		`SELECT `+medicineCols+` FROM medicines WHERE family_id = ? AND assigned_to = ? ORDER BY created_at ASC`,
		familyID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list medicines by assignee: %w", err)
	}
	defer rows.Close()
	return collectMedicines(rows)
}

func collectMedicines(rows *sql.Rows) ([]model.Medicine, error) {
	var meds []model.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		meds = append(meds, *m)
	}
	return meds, rows.Err()
}

// MedicineUpdate holds optional field updates.
type MedicineUpdate struct {
	Name        *string
	Dosage      *string
	Schedule    *model.MedicineSchedule
	SetSchedule bool
	AssignedTo  *string
	SetAssigned bool
	Active      *bool
	Inventory   *int
}

func (s *MedicineStore) Update(id string, u MedicineUpdate) (*model.Medicine, error) {
	existing, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if u.Name != nil {
		existing.Name = *u.Name
	}
	if u.Dosage != nil {
		existing.Dosage = *u.Dosage
	}
	if u.SetSchedule {
		existing.Schedule = u.Schedule
	}
	if u.SetAssigned {
		existing.AssignedTo = u.AssignedTo
	}
	if u.Active != nil {
		existing.Active = *u.Active
	}
	if u.Inventory != nil {
		existing.Inventory = *u.Inventory
	}

	schedule, err := marshalSchedule(existing.Schedule)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE medicines SET name = ?, dosage = ?, schedule = ?, assigned_to = ?, active = ?, inventory = ? WHERE id = ?`,
		existing.Name, existing.Dosage, schedule, nullArg(existing.AssignedTo), existing.Active, existing.Inventory, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update medicine: %w", err)
	}
	return s.GetByID(id)
}

func (s *MedicineStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	return nil
}

// --- Medicine logs ---

const medicineLogCols = `id, family_id, medicine_id, taken_by, marked_by, taken_at, scheduled_time, status`

// NewMedicineLog carries the fields needed to record a dose.
type NewMedicineLog struct {
	FamilyID      string
	MedicineID    string
	TakenBy       *string
	MarkedBy      *string
	TakenAt       time.Time
	ScheduledTime string
	Status        string
}

func (s *MedicineStore) CreateLog(nl NewMedicineLog) (*model.MedicineLog, error) {
	id := uuid.NewString()
	if nl.Status == "" {
		nl.Status = model.MedicineLogTaken
	}

	_, err := s.db.Exec(
		`INSERT INTO medicine_logs (id, family_id, medicine_id, taken_by, marked_by, taken_at, scheduled_time, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nl.FamilyID, nl.MedicineID, nullArg(nl.TakenBy), nullArg(nl.MarkedBy),
		nl.TakenAt.UTC(), nl.ScheduledTime, nl.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert medicine log: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+medicineLogCols+` FROM medicine_logs WHERE id = ?`, id)
	return scanMedicineLog(row)
}

func scanMedicineLog(scanner interface{ Scan(...any) error }) (*model.MedicineLog, error) {
	var l model.MedicineLog
	var takenBy, markedBy sql.NullString
	err := scanner.Scan(&l.ID, &l.FamilyID, &l.MedicineID, &takenBy, &markedBy, &l.TakenAt, &l.ScheduledTime, &l.Status)
	if err != nil {
		return nil, fmt.Errorf("scan medicine log: %w", err)
	}
	l.TakenBy = nullStr(takenBy)
	l.MarkedBy = nullStr(markedBy)
	return &l, nil
}

func (s *MedicineStore) ListLogs(familyID string) ([]model.MedicineLog, error) {
	rows, err := s.db.Query(
		`SELECT `+medicineLogCols+` FROM medicine_logs WHERE family_id = ? ORDER BY taken_at DESC`, familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list medicine logs: %w", err)
	}
	defer rows.Close()

	var logs []model.MedicineLog
	for rows.Next() {
		l, err := scanMedicineLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}
