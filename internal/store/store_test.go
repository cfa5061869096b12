package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/studyhall/solver/internal/config"
	st "github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		db, err := st.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormDB = db

		store = st.NewStore(db)
		Expect(store).ToNot(BeNil())
		Expect(store.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		store.Close()
	})

	Context("transaction", func() {
		It("commits an assignment", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			assignment, err := store.Assignment().Create(ctx, model.Assignment{
				ID:          uuid.New(),
				Title:       "algebra homework",
				Description: "solve for x",
				Kind:        model.AssignmentKindProblemSet,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())
			Expect(assignment).ToNot(BeNil())

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from assignments;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))
		})

		It("rolls an assignment back", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = store.Assignment().Create(ctx, model.Assignment{
				ID:          uuid.New(),
				Title:       "essay",
				Description: "write about rivers",
				Kind:        model.AssignmentKindEssay,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())

			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			count := 0
			Expect(gormDB.Raw("SELECT COUNT(*) from assignments;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})

		It("sees solution and status together or not at all", func() {
			assignment, err := store.Assignment().Create(context.TODO(), model.Assignment{
				ID:          uuid.New(),
				Title:       "lab",
				Description: "measure",
				Kind:        model.AssignmentKindLabReport,
				Source:      model.AssignmentSourceManual,
				Username:    "student",
				OrgID:       "org",
			})
			Expect(err).To(BeNil())

			_, err = store.Assignment().MarkDispatched(context.TODO(), assignment.ID, model.AssignmentStatusPending)
			Expect(err).To(BeNil())

			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = store.Solution().Create(ctx, model.Solution{
				AssignmentID: assignment.ID,
				Content:      "42",
				Generation:   1,
			})
			Expect(err).To(BeNil())
			Expect(store.Assignment().CompleteGeneration(ctx, assignment.ID, 1, model.AssignmentStatusCompleted, "")).To(BeNil())

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			updated, err := store.Assignment().Get(context.TODO(), assignment.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.AssignmentStatusCompleted))

			_, err = store.Solution().GetByAssignment(context.TODO(), assignment.ID)
			Expect(err).To(BeNil())
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from solutions;")
			gormDB.Exec("DELETE from assignments;")
		})
	})

	Context("statistics", func() {
		It("counts assignments by status and registered users", func() {
			for _, status := range []string{
				model.AssignmentStatusPending,
				model.AssignmentStatusPending,
				model.AssignmentStatusCompleted,
			} {
				_, err := store.Assignment().Create(context.TODO(), model.Assignment{
					ID:          uuid.New(),
					Title:       "t",
					Description: "d",
					Kind:        model.AssignmentKindGeneral,
					Source:      model.AssignmentSourceManual,
					Username:    "student",
					OrgID:       "org",
					Status:      status,
				})
				Expect(err).To(BeNil())
			}

			_, err := store.User().Upsert(context.TODO(), model.User{Username: "student", OrgID: "org"})
			Expect(err).To(BeNil())

			stats, err := store.Statistics(context.TODO())
			Expect(err).To(BeNil())
			Expect(stats.Total).To(Equal(int64(3)))
			Expect(stats.ByStatus[model.AssignmentStatusPending]).To(Equal(int64(2)))
			Expect(stats.ByStatus[model.AssignmentStatusCompleted]).To(Equal(int64(1)))
			Expect(stats.TotalUsers).To(Equal(int64(1)))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE from assignments;")
			gormDB.Exec("DELETE from users;")
		})
	})
})
