package jobs_test

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/riverqueue/river"
	"gorm.io/gorm"

	"github.com/studyhall/solver/internal/config"
	"github.com/studyhall/solver/internal/jobs"
	"github.com/studyhall/solver/internal/llm"
	st "github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

var _ = Describe("SolveArgs", func() {
	It("returns the job kind", func() {
		Expect(jobs.SolveArgs{}.Kind()).To(Equal("assignment_solve"))
	})

	It("disables automatic retries", func() {
		opts := jobs.SolveArgs{}.InsertOpts()
		Expect(opts.Queue).To(Equal(jobs.DefaultQueue))
		Expect(opts.MaxAttempts).To(Equal(jobs.MaxJobAttempts))
	})
})

var _ = Describe("solve worker", Ordered, func() {
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

	AfterEach(func() {
		gormdb.Exec("DELETE from solutions;")
		gormdb.Exec("DELETE from assignments;")
	})

	AfterAll(func() {
		s.Close()
	})

	dispatch := func() *model.Assignment {
		assignment, err := s.Assignment().Create(context.TODO(), model.Assignment{
			Title:       "algebra",
			Description: "solve 3x = 6",
			Kind:        model.AssignmentKindProblemSet,
			Source:      model.AssignmentSourceManual,
			Username:    "student",
			OrgID:       "org",
		})
		Expect(err).To(BeNil())

		dispatched, err := s.Assignment().MarkDispatched(context.TODO(), assignment.ID, model.AssignmentStatusPending)
		Expect(err).To(BeNil())
		return dispatched
	}

	job := func(a *model.Assignment) *river.Job[jobs.SolveArgs] {
		return &river.Job[jobs.SolveArgs]{
			Args: jobs.SolveArgs{
				AssignmentID: a.ID,
				Username:     a.Username,
				OrgID:        a.OrgID,
				Generation:   a.Generation,
				Trigger:      "solve",
			},
		}
	}

	It("persists the solution and completes the assignment", func() {
		assignment := dispatch()

		invoker := &llm.StaticInvoker{Solution: &llm.Solution{
			Content:    "x = 2",
			Steps:      []llm.Step{{Text: "divide both sides by 3"}},
			Reasoning:  "linear equation",
			Confidence: 0.95,
			Model:      "gemini-2.0-flash",
		}}
		worker := jobs.NewSolveWorker(s, invoker, nil, nil, time.Minute)

		Expect(worker.Work(context.TODO(), job(assignment))).To(BeNil())

		stored, err := s.Assignment().Get(context.TODO(), assignment.ID)
		Expect(err).To(BeNil())
		Expect(stored.Status).To(Equal(model.AssignmentStatusCompleted))

		solution, err := s.Solution().GetByAssignment(context.TODO(), assignment.ID)
		Expect(err).To(BeNil())
		Expect(solution.Content).To(Equal("x = 2"))
		Expect(solution.Generation).To(Equal(assignment.Generation))

		steps, err := solution.DecodeSteps()
		Expect(err).To(BeNil())
		Expect(steps).To(HaveLen(1))
	})

	It("records the failure reason when the invoker errors", func() {
		assignment := dispatch()

		invoker := &llm.StaticInvoker{Err: errors.New("model unavailable")}
		worker := jobs.NewSolveWorker(s, invoker, nil, nil, time.Minute)

		Expect(worker.Work(context.TODO(), job(assignment))).ToNot(BeNil())

		stored, err := s.Assignment().Get(context.TODO(), assignment.ID)
		Expect(err).To(BeNil())
		Expect(stored.Status).To(Equal(model.AssignmentStatusFailed))
		Expect(stored.StatusInfo).To(ContainSubstring("model unavailable"))

		_, err = s.Solution().GetByAssignment(context.TODO(), assignment.ID)
		Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
	})

	It("discards a result whose generation is stale", func() {
		assignment := dispatch()
		staleJob := job(assignment)

		// reset and re-dispatch while the first run is in flight
		_, err := s.Assignment().UpdateStatus(context.TODO(), assignment.ID,
			model.AssignmentStatusPending, "", model.AssignmentStatusProcessing)
		Expect(err).To(BeNil())
		_, err = s.Assignment().MarkDispatched(context.TODO(), assignment.ID, model.AssignmentStatusPending)
		Expect(err).To(BeNil())

		invoker := &llm.StaticInvoker{Solution: &llm.Solution{Content: "stale answer"}}
		worker := jobs.NewSolveWorker(s, invoker, nil, nil, time.Minute)

		Expect(worker.Work(context.TODO(), staleJob)).To(BeNil())

		stored, err := s.Assignment().Get(context.TODO(), assignment.ID)
		Expect(err).To(BeNil())
		Expect(stored.Status).To(Equal(model.AssignmentStatusProcessing))
		Expect(stored.Generation).To(Equal(int64(2)))

		// the stale solution insert was rolled back with the transaction
		_, err = s.Solution().GetByAssignment(context.TODO(), assignment.ID)
		Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
	})

	It("ignores an assignment deleted before pickup", func() {
		assignment := dispatch()
		orphan := job(assignment)
		Expect(s.Assignment().Delete(context.TODO(), assignment.ID)).To(BeNil())

		invoker := &llm.StaticInvoker{}
		worker := jobs.NewSolveWorker(s, invoker, nil, nil, time.Minute)

		Expect(worker.Work(context.TODO(), orphan)).To(BeNil())
	})

	It("ignores a failure whose generation is stale", func() {
		assignment := dispatch()
		staleJob := job(assignment)

		_, err := s.Assignment().UpdateStatus(context.TODO(), assignment.ID,
			model.AssignmentStatusPending, "", model.AssignmentStatusProcessing)
		Expect(err).To(BeNil())
		_, err = s.Assignment().MarkDispatched(context.TODO(), assignment.ID, model.AssignmentStatusPending)
		Expect(err).To(BeNil())

		invoker := &llm.StaticInvoker{Err: errors.New("timed out")}
		worker := jobs.NewSolveWorker(s, invoker, nil, nil, time.Minute)

		Expect(worker.Work(context.TODO(), staleJob)).ToNot(BeNil())

		stored, err := s.Assignment().Get(context.TODO(), assignment.ID)
		Expect(err).To(BeNil())
		Expect(stored.Status).To(Equal(model.AssignmentStatusProcessing))
		Expect(stored.StatusInfo).To(BeEmpty())
	})

	It("uses the configured timeout", func() {
		worker := jobs.NewSolveWorker(s, &llm.StaticInvoker{}, nil, nil, 30*time.Second)
		Expect(worker.Timeout(nil)).To(Equal(30 * time.Second))
	})

	It("reports a vanished assignment without error", func() {
		worker := jobs.NewSolveWorker(s, &llm.StaticInvoker{}, nil, nil, time.Minute)
		unknown := &river.Job[jobs.SolveArgs]{Args: jobs.SolveArgs{AssignmentID: uuid.New(), Generation: 1}}
		Expect(worker.Work(context.TODO(), unknown)).To(BeNil())
	})
})
