package store_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/studyhall/solver/internal/config"
	st "github.com/studyhall/solver/internal/store"
	"github.com/studyhall/solver/internal/store/model"
)

var _ = Describe("solution store", Ordered, func() {
	var (
		s            st.Store
		gormdb       *gorm.DB
		assignmentID uuid.UUID
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
	})

	AfterEach(func() {
		gormdb.Exec("DELETE from solutions;")
		gormdb.Exec("DELETE from assignments;")
	})

	It("stores and reads back steps", func() {
		_, err := s.Solution().Create(context.TODO(), model.Solution{
			AssignmentID: assignmentID,
			Content:      "x = 2",
			Steps:        []byte(`[{"text":"isolate x"},{"text":"divide","detail":"both sides by 3"}]`),
			Confidence:   0.9,
			ModelID:      "gemini-2.0-flash",
		})
		Expect(err).To(BeNil())

		solution, err := s.Solution().GetByAssignment(context.TODO(), assignmentID)
		Expect(err).To(BeNil())
		steps, err := solution.DecodeSteps()
		Expect(err).To(BeNil())
		Expect(steps).To(HaveLen(2))
		Expect(steps[1].Detail).To(Equal("both sides by 3"))
	})

	It("rejects a second solution for the same assignment", func() {
		_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignmentID, Content: "first"})
		Expect(err).To(BeNil())

		_, err = s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignmentID, Content: "second"})
		Expect(errors.Is(err, st.ErrDuplicateKey)).To(BeTrue())
	})

	It("updates the rating", func() {
		_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignmentID, Content: "c"})
		Expect(err).To(BeNil())

		Expect(s.Solution().UpdateRating(context.TODO(), assignmentID, 4)).To(BeNil())

		solution, err := s.Solution().GetByAssignment(context.TODO(), assignmentID)
		Expect(err).To(BeNil())
		Expect(*solution.Rating).To(Equal(4))
	})

	It("returns not found when rating a missing solution", func() {
		err := s.Solution().UpdateRating(context.TODO(), assignmentID, 4)
		Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
	})

	It("deletes by assignment", func() {
		_, err := s.Solution().Create(context.TODO(), model.Solution{AssignmentID: assignmentID, Content: "c"})
		Expect(err).To(BeNil())

		Expect(s.Solution().DeleteByAssignment(context.TODO(), assignmentID)).To(BeNil())

		_, err = s.Solution().GetByAssignment(context.TODO(), assignmentID)
		Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())

		err = s.Solution().DeleteByAssignment(context.TODO(), assignmentID)
		Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
	})
})

var _ = Describe("user store", Ordered, func() {
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
		gormdb.Exec("DELETE from users;")
	})

	It("upserts on (username, org)", func() {
		first, err := s.User().Upsert(context.TODO(), model.User{Username: "student", OrgID: "org", Email: "old@example.com"})
		Expect(err).To(BeNil())

		second, err := s.User().Upsert(context.TODO(), model.User{Username: "student", OrgID: "org", Email: "new@example.com"})
		Expect(err).To(BeNil())
		Expect(second.ID).To(Equal(first.ID))
		Expect(second.Email).To(Equal("new@example.com"))

		count := 0
		Expect(gormdb.Raw("SELECT COUNT(*) from users;").Scan(&count).Error).To(BeNil())
		Expect(count).To(Equal(1))
	})

	It("stores the classroom token", func() {
		_, err := s.User().Upsert(context.TODO(), model.User{Username: "student", OrgID: "org"})
		Expect(err).To(BeNil())

		token := "ya29.token"
		Expect(s.User().SetClassroomToken(context.TODO(), "student", "org", &token)).To(BeNil())

		user, err := s.User().Get(context.TODO(), "student", "org")
		Expect(err).To(BeNil())
		Expect(*user.ClassroomToken).To(Equal("ya29.token"))
	})

	It("returns not found for an unknown user", func() {
		_, err := s.User().Get(context.TODO(), "ghost", "org")
		Expect(errors.Is(err, st.ErrRecordNotFound)).To(BeTrue())
	})
})
