package service_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/studyhall/solver/internal/auth"
	"github.com/studyhall/solver/internal/config"
	"github.com/studyhall/solver/internal/jobs"
	"github.com/studyhall/solver/internal/service"
	st "github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

// fakeEnqueuer captures dispatches instead of talking to the job queue.
type fakeEnqueuer struct {
	args []jobs.SolveArgs
	err  error
}

func (f *fakeEnqueuer) EnqueueSolve(_ context.Context, args jobs.SolveArgs) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.args = append(f.args, args)
	return int64(len(f.args)), nil
}

var _ = Describe("assignment service", Ordered, func() {
	var (
		s        st.Store
		gormdb   *gorm.DB
		enqueuer *fakeEnqueuer
		srv      *service.AssignmentService
		student  auth.User
		stranger auth.User
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = st.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())

		student = auth.User{Username: "student", Organization: "org"}
		stranger = auth.User{Username: "stranger", Organization: "org"}
	})

	BeforeEach(func() {
		enqueuer = &fakeEnqueuer{}
		srv = service.NewAssignmentService(s, enqueuer, nil, nil)
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from solutions;")
		gormdb.Exec("DELETE from assignments;")
	})

	AfterAll(func() {
		s.Close()
	})

	createAssignment := func(status string) *model.Assignment {
		assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
			Title:       "algebra",
			Description: "solve for x",
			Kind:        model.AssignmentKindProblemSet,
			Source:      model.AssignmentSourceManual,
			Username:    student.Username,
			OrgID:       student.Organization,
			Status:      status,
		})
		Expect(err).To(BeNil())
		return assignment
	}

	Context("solve", func() {
		It("dispatches a pending assignment", func() {
			assignment := createAssignment(model.AssignmentStatusPending)

			result, err := srv.Solve(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.AssignmentStatusProcessing))
			Expect(result.Generation).To(Equal(int64(1)))

			Expect(enqueuer.args).To(HaveLen(1))
			Expect(enqueuer.args[0].AssignmentID).To(Equal(assignment.ID))
			Expect(enqueuer.args[0].Generation).To(Equal(int64(1)))
			Expect(enqueuer.args[0].Trigger).To(Equal("solve"))
		})

		It("re-dispatches a failed assignment with a fresh generation", func() {
			assignment := createAssignment(model.AssignmentStatusFailed)
			gormdb.Exec("UPDATE assignments SET generation = 3 WHERE id = ?", assignment.ID)

			result, err := srv.Solve(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())
			Expect(result.Generation).To(Equal(int64(4)))
		})

		It("rejects a solve while one is running", func() {
			assignment := createAssignment(model.AssignmentStatusProcessing)

			_, err := srv.Solve(context.TODO(), assignment.ID, student)

			var inProgress *service.ErrSolveInProgress
			Expect(errors.As(err, &inProgress)).To(BeTrue())
			Expect(enqueuer.args).To(BeEmpty())
		})

		It("acknowledges a solved assignment without dispatching", func() {
			assignment := createAssignment(model.AssignmentStatusCompleted)
			_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignment.ID, Content: "done"})
			Expect(err).To(BeNil())

			result, err := srv.Solve(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.AssignmentStatusCompleted))
			Expect(enqueuer.args).To(BeEmpty())
		})

		It("hides other users' assignments", func() {
			assignment := createAssignment(model.AssignmentStatusPending)

			_, err := srv.Solve(context.TODO(), assignment.ID, stranger)

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("reports not found for an unknown id", func() {
			_, err := srv.Solve(context.TODO(), uuid.New(), student)

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("marks the assignment failed when the queue is unreachable", func() {
			assignment := createAssignment(model.AssignmentStatusPending)
			enqueuer.err = errors.New("queue down")

			_, err := srv.Solve(context.TODO(), assignment.ID, student)
			Expect(err).ToNot(BeNil())

			stored, err := s.Assignment().Get(context.TODO(), assignment.ID)
			Expect(err).To(BeNil())
			Expect(stored.Status).To(Equal(model.AssignmentStatusFailed))
		})
	})

	Context("regenerate", func() {
		It("requires an existing solution", func() {
			assignment := createAssignment(model.AssignmentStatusPending)

			_, err := srv.Regenerate(context.TODO(), assignment.ID, student)

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
			Expect(enqueuer.args).To(BeEmpty())
		})

		It("discards the solution and dispatches", func() {
			assignment := createAssignment(model.AssignmentStatusCompleted)
			gormdb.Exec("UPDATE assignments SET generation = 1 WHERE id = ?", assignment.ID)
			_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignment.ID, Content: "old", Generation: 1})
			Expect(err).To(BeNil())

			result, err := srv.Regenerate(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.AssignmentStatusProcessing))
			Expect(result.Generation).To(Equal(int64(2)))

			_, err = s.Solution().GetByAssignment(context.TODO(), assignment.ID)
			Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())

			Expect(enqueuer.args).To(HaveLen(1))
			Expect(enqueuer.args[0].Trigger).To(Equal("regenerate"))
			Expect(enqueuer.args[0].Generation).To(Equal(int64(2)))
		})

		It("rejects a regenerate while a solve is running", func() {
			assignment := createAssignment(model.AssignmentStatusProcessing)
			_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignment.ID, Content: "old"})
			Expect(err).To(BeNil())

			_, err = srv.Regenerate(context.TODO(), assignment.ID, student)

			var inProgress *service.ErrSolveInProgress
			Expect(errors.As(err, &inProgress)).To(BeTrue())
		})
	})

	Context("reset stuck", func() {
		It("returns a processing assignment to pending", func() {
			assignment := createAssignment(model.AssignmentStatusProcessing)

			result, err := srv.ResetStuck(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.AssignmentStatusPending))
		})

		It("is idempotent on pending", func() {
			assignment := createAssignment(model.AssignmentStatusPending)

			result, err := srv.ResetStuck(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())
			Expect(result.Status).To(Equal(model.AssignmentStatusPending))
		})

		It("refuses to reset a terminal state", func() {
			assignment := createAssignment(model.AssignmentStatusCompleted)

			_, err := srv.ResetStuck(context.TODO(), assignment.ID, student)

			var invalid *service.ErrInvalidTransition
			Expect(errors.As(err, &invalid)).To(BeTrue())
		})

		It("does not touch the solution", func() {
			assignment := createAssignment(model.AssignmentStatusProcessing)
			_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignment.ID, Content: "kept"})
			Expect(err).To(BeNil())

			_, err = srv.ResetStuck(context.TODO(), assignment.ID, student)
			Expect(err).To(BeNil())

			solution, err := s.Solution().GetByAssignment(context.TODO(), assignment.ID)
			Expect(err).To(BeNil())
			Expect(solution.Content).To(Equal("kept"))
		})
	})

	Context("crud", func() {
		It("maps a foreign owner to not found on get", func() {
			assignment := createAssignment(model.AssignmentStatusPending)

			_, err := srv.GetAssignment(context.TODO(), assignment.ID, stranger)

			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})

		It("lists only the caller's assignments", func() {
			createAssignment(model.AssignmentStatusPending)

			assignments, total, err := srv.ListAssignments(context.TODO(), student, &service.AssignmentFilter{})
			Expect(err).To(BeNil())
			Expect(assignments).To(HaveLen(1))
			Expect(total).To(Equal(int64(1)))

			assignments, total, err = srv.ListAssignments(context.TODO(), stranger, &service.AssignmentFilter{})
			Expect(err).To(BeNil())
			Expect(assignments).To(BeEmpty())
			Expect(total).To(Equal(int64(0)))
		})
	})
})
