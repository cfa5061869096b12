package store_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/studyhall/solver/internal/config"
	st "github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

const (
	insertAssignmentStm = "INSERT INTO assignments (id, created_at, title, description, kind, source, username, org_id, status, generation) VALUES ('%s', CURRENT_TIMESTAMP, '%s', 'desc', 'general', 'manual', '%s', '%s', '%s', 0);"
	insertSubjectStm    = "UPDATE assignments SET subject = '%s' WHERE id = '%s';"
)

var _ = Describe("assignment store", Ordered, func() {
	var (
		s      st.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from solutions;")
		gormdb.Exec("DELETE from attachments;")
		gormdb.Exec("DELETE from assignments;")
	})

	Context("list", func() {
		It("lists only the owner's rows", func() {
			tx := gormdb.Exec(fmt.Sprintf(insertAssignmentStm, uuid.NewString(), "a1", "student", "org", "pending"))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertAssignmentStm, uuid.NewString(), "a2", "other", "org", "pending"))
			Expect(tx.Error).To(BeNil())

			assignments, err := s.Assignment().List(context.TODO(),
				st.NewAssignmentQueryFilter().ByOwner("student", "org"),
				st.NewAssignmentQueryOptions())
			Expect(err).To(BeNil())
			Expect(assignments).To(HaveLen(1))
			Expect(assignments[0].Title).To(Equal("a1"))
		})

		It("filters by title substring and status", func() {
			tx := gormdb.Exec(fmt.Sprintf(insertAssignmentStm, uuid.NewString(), "algebra homework", "student", "org", "pending"))
			Expect(tx.Error).To(BeNil())
			tx = gormdb.Exec(fmt.Sprintf(insertAssignmentStm, uuid.NewString(), "history essay", "student", "org", "completed"))
			Expect(tx.Error).To(BeNil())

			assignments, err := s.Assignment().List(context.TODO(),
				st.NewAssignmentQueryFilter().ByOwner("student", "org").ByTitleLike("algebra"),
				st.NewAssignmentQueryOptions())
			Expect(err).To(BeNil())
			Expect(assignments).To(HaveLen(1))

			assignments, err = s.Assignment().List(context.TODO(),
				st.NewAssignmentQueryFilter().ByOwner("student", "org").ByStatus("completed"),
				st.NewAssignmentQueryOptions())
			Expect(err).To(BeNil())
			Expect(assignments).To(HaveLen(1))
			Expect(assignments[0].Title).To(Equal("history essay"))
		})

		It("sorts and paginates", func() {
			for _, title := range []string{"b", "c", "a"} {
				tx := gormdb.Exec(fmt.Sprintf(insertAssignmentStm, uuid.NewString(), title, "student", "org", "pending"))
				Expect(tx.Error).To(BeNil())
			}

			assignments, err := s.Assignment().List(context.TODO(),
				st.NewAssignmentQueryFilter().ByOwner("student", "org"),
				st.NewAssignmentQueryOptions().WithSortOrder(st.SortByTitleAsc).WithPagination(2, 0))
			Expect(err).To(BeNil())
			Expect(assignments).To(HaveLen(2))
			Expect(assignments[0].Title).To(Equal("a"))
			Expect(assignments[1].Title).To(Equal("b"))

			count, err := s.Assignment().Count(context.TODO(),
				st.NewAssignmentQueryFilter().ByOwner("student", "org"))
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(3)))
		})
	})

	Context("create", func() {
		It("defaults to pending", func() {
			assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())
			Expect(assignment.Status).To(Equal(model.AssignmentStatusPending))
			Expect(assignment.Generation).To(Equal(int64(0)))
		})

		It("rejects a duplicate classroom id per owner", func() {
			classroomID := "cw-1"
			_, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceClassroom,
				Username:    "student",
				OrgID:       "org",
				ClassroomID: &classroomID,
			})
			Expect(err).To(BeNil())

			_, err = s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t2",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceClassroom,
				Username:    "student",
				OrgID:       "org",
				ClassroomID: &classroomID,
			})
			Expect(errors.Is(err, st.ErrDuplicateKey)).To(BeTrue())
		})
	})

	Context("update", func() {
		It("patches only set fields", func() {
			assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "before",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())

			title := "after"
			subject := "math"
			updated, err := s.Assignment().Update(context.TODO(), assignment.ID, st.AssignmentUpdate{
				Title:   &title,
				Subject: &subject,
			})
			Expect(err).To(BeNil())
			Expect(updated.Title).To(Equal("after"))
			Expect(*updated.Subject).To(Equal("math"))
			Expect(updated.Description).To(Equal("d"))
		})

		It("returns not found for an unknown id", func() {
			title := "x"
			_, err := s.Assignment().Update(context.TODO(), uuid.New(), st.AssignmentUpdate{Title: &title})
			Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Context("dispatch", func() {
		It("bumps the generation and flips to processing", func() {
			assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())

			dispatched, err := s.Assignment().MarkDispatched(context.TODO(), assignment.ID,
				model.AssignmentStatusPending, model.AssignmentStatusFailed)
			Expect(err).To(BeNil())
			Expect(dispatched.Status).To(Equal(model.AssignmentStatusProcessing))
			Expect(dispatched.Generation).To(Equal(int64(1)))
		})

		It("refuses to dispatch a processing row", func() {
			assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
				Status:      model.AssignmentStatusProcessing,
			})
			Expect(err).To(BeNil())

			_, err = s.Assignment().MarkDispatched(context.TODO(), assignment.ID,
				model.AssignmentStatusPending, model.AssignmentStatusFailed)
			Expect(errors.Is(err, st.ErrPreconditionFailed)).To(BeTrue())
		})

		It("distinguishes a missing row from a failed guard", func() {
			_, err := s.Assignment().MarkDispatched(context.TODO(), uuid.New(), model.AssignmentStatusPending)
			Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
		})
	})

	Context("completion", func() {
		var assignmentID uuid.UUID

		BeforeEach(func() {
			assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())
			assignmentID = assignment.ID

			_, err = s.Assignment().MarkDispatched(context.TODO(), assignmentID, model.AssignmentStatusPending)
			Expect(err).To(BeNil())
		})

		It("accepts the write for the matching generation", func() {
			err := s.Assignment().CompleteGeneration(context.TODO(), assignmentID, 1, model.AssignmentStatusCompleted, "")
			Expect(err).To(BeNil())

			assignment, err := s.Assignment().Get(context.TODO(), assignmentID)
			Expect(err).To(BeNil())
			Expect(assignment.Status).To(Equal(model.AssignmentStatusCompleted))
		})

		It("rejects a stale generation", func() {
			// a reset followed by a new dispatch moved the row to generation 2
			_, err := s.Assignment().UpdateStatus(context.TODO(), assignmentID,
				model.AssignmentStatusPending, "", model.AssignmentStatusProcessing)
			Expect(err).To(BeNil())
			_, err = s.Assignment().MarkDispatched(context.TODO(), assignmentID, model.AssignmentStatusPending)
			Expect(err).To(BeNil())

			err = s.Assignment().CompleteGeneration(context.TODO(), assignmentID, 1, model.AssignmentStatusFailed, "late failure")
			Expect(errors.Is(err, st.ErrPreconditionFailed)).To(BeTrue())

			assignment, err := s.Assignment().Get(context.TODO(), assignmentID)
			Expect(err).To(BeNil())
			Expect(assignment.Status).To(Equal(model.AssignmentStatusProcessing))
			Expect(assignment.Generation).To(Equal(int64(2)))
		})

		It("rejects a write after the row left processing", func() {
			_, err := s.Assignment().UpdateStatus(context.TODO(), assignmentID,
				model.AssignmentStatusPending, "", model.AssignmentStatusProcessing)
			Expect(err).To(BeNil())

			err = s.Assignment().CompleteGeneration(context.TODO(), assignmentID, 1, model.AssignmentStatusCompleted, "")
			Expect(errors.Is(err, st.ErrPreconditionFailed)).To(BeTrue())
		})
	})

	Context("delete", func() {
		It("cascades the solution", func() {
			assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
				Title:       "t",
				Description: "d",
				Kind:        model.AssignmentKindGeneral,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())

			_, err = s.Solution().Create(context.TODO(), model.Solution{
				AssignmentID: assignment.ID,
				Content:      "answer",
			})
			Expect(err).To(BeNil())

			Expect(s.Assignment().Delete(context.TODO(), assignment.ID)).To(BeNil())

			_, err = s.Solution().GetByAssignment(context.TODO(), assignment.ID)
			Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
		})

		It("is a no-op for an unknown id", func() {
			Expect(s.Assignment().Delete(context.TODO(), uuid.New())).To(BeNil())
		})
	})

	Context("stats", func() {
		It("aggregates per owner", func() {
			for i, status := range []string{"pending", "completed", "completed"} {
				id := uuid.NewString()
				tx := gormdb.Exec(fmt.Sprintf(insertAssignmentStm, id, fmt.Sprintf("a%d", i), "student", "org", status))
				Expect(tx.Error).To(BeNil())
				tx = gormdb.Exec(fmt.Sprintf(insertSubjectStm, "math", id))
				Expect(tx.Error).To(BeNil())
			}
			tx := gormdb.Exec(fmt.Sprintf(insertAssignmentStm, uuid.NewString(), "other", "other", "org", "pending"))
			Expect(tx.Error).To(BeNil())

			stats, err := s.Assignment().StatsByOwner(context.TODO(), "student", "org")
			Expect(err).To(BeNil())
			Expect(stats.Total).To(Equal(int64(3)))
			Expect(stats.ByStatus["completed"]).To(Equal(int64(2)))
			Expect(stats.BySubject["math"]).To(Equal(int64(3)))
		})
	})
})
