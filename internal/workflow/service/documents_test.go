package service_test

//go:generate mockgen -destination=mocks/mocks.go -package=mocks dealflow/internal/workflow/service PlanLimiter

import (
	"errors"
	"sync"

	"go.uber.org/mock/gomock"

	"dealflow/internal/workflow/models"
	"dealflow/internal/workflow/service"
	"dealflow/internal/workflow/service/mocks"
	dErrors "dealflow/pkg/domain-errors"
)

func (s *WorkflowServiceSuite) TestRejectAndReplace() {
	t := s.createPurchase(nil)
	identity := s.condition(t.ID, "identity-verification")
	v1 := s.uploadFor(t.ID, identity)

	s.Run("reject needs a reason", func() {
		_, err := s.service.RejectDocument(s.ctx, v1.ID, "")
		s.requireCode(err, dErrors.CodeValidation)
	})

	rejected, err := s.service.RejectDocument(s.ctx, v1.ID, "Illegible scan")
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusRejected, rejected.Status)
	s.Equal("Illegible scan", rejected.RejectionReason)
	s.True(s.condition(t.ID, "identity-verification").IsOpen(), "condition stays open after rejection")

	v2, err := s.service.ReplaceDocument(s.ctx, v1.ID, pdf("passport-rescan.pdf"))
	s.Require().NoError(err)
	s.Equal(2, v2.Version)
	s.Equal(models.DocumentStatusUploaded, v2.Status)
	s.Require().NotNil(v2.ParentID)
	s.Equal(v1.ID, *v2.ParentID)
	s.Equal(identity.ID, *v2.ConditionID)
	s.Equal("identity", v2.Category)

	s.Run("only the head can be replaced or validated", func() {
		_, err := s.service.ReplaceDocument(s.ctx, v1.ID, pdf("again.pdf"))
		s.requireCode(err, dErrors.CodeDocumentInvalidState)

		_, err = s.service.ValidateDocument(s.ctx, v1.ID)
		s.requireCode(err, dErrors.CodeDocumentInvalidState)
	})

	s.Run("versions list the whole chain", func() {
		chain, err := s.service.DocumentVersions(s.ctx, v1.ID)
		s.Require().NoError(err)
		s.Require().Len(chain, 2)
		s.Equal(v1.ID, chain[0].ID)
		s.Equal(v2.ID, chain[1].ID)
		s.NoError(models.CheckVersionChain(chain))
	})

	s.Run("validating twice is refused", func() {
		_, err := s.service.ValidateDocument(s.ctx, v2.ID)
		s.Require().NoError(err)
		s.Equal(models.ConditionStatusCompleted, s.condition(t.ID, "identity-verification").Status)

		_, err = s.service.ValidateDocument(s.ctx, v2.ID)
		s.requireCode(err, dErrors.CodeDocumentInvalidState)

		_, err = s.service.RejectDocument(s.ctx, v2.ID, "too late")
		s.requireCode(err, dErrors.CodeDocumentInvalidState)
	})

	types := s.activityTypes(t.ID)
	s.Equal(2, types[models.ActivityDocumentUploaded])
	s.Equal(1, types[models.ActivityDocumentRejected])
	s.Equal(1, types[models.ActivityDocumentValidated])
}

func (s *WorkflowServiceSuite) TestSupersededVersionIsFrozen() {
	t := s.createPurchase(nil)
	identity := s.condition(t.ID, "identity-verification")
	v1 := s.uploadFor(t.ID, identity)
	v2 := s.uploadFor(t.ID, identity)
	s.Equal(2, v2.Version)

	_, err := s.service.RejectDocument(s.ctx, v1.ID, "Wrong person")
	s.requireCode(err, dErrors.CodeDocumentInvalidState)

	_, err = s.service.ValidateDocument(s.ctx, v1.ID)
	s.requireCode(err, dErrors.CodeDocumentInvalidState)

	rejected, err := s.service.RejectDocument(s.ctx, v2.ID, "Expired")
	s.Require().NoError(err)
	s.Equal(models.DocumentStatusRejected, rejected.Status)
	s.Equal(0, s.activityTypes(t.ID)[models.ActivityDocumentValidated])
}

func (s *WorkflowServiceSuite) TestUploadCategoryFollowsCondition() {
	t := s.createPurchase(nil)
	identity := s.condition(t.ID, "identity-verification")

	s.Run("a different category is refused", func() {
		_, err := s.service.UploadDocument(s.ctx, service.UploadInput{
			TransactionID: t.ID, ConditionID: &identity.ID, Category: "deposit", File: pdf("cheque.pdf"),
		})
		s.requireCode(err, dErrors.CodeValidation)

		docs, err := s.service.ListDocuments(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Empty(docs)
	})

	s.Run("an omitted category takes the condition's", func() {
		doc := s.uploadFor(t.ID, identity)
		s.Equal("identity", doc.Category)
	})

	s.Run("the same category in another case is stored canonically", func() {
		doc, err := s.service.UploadDocument(s.ctx, service.UploadInput{
			TransactionID: t.ID, ConditionID: &identity.ID, Category: "IDENTITY", File: pdf("passport.pdf"),
		})
		s.Require().NoError(err)
		s.Equal("identity", doc.Category)
		s.Equal(2, doc.Version)
	})
}

func (s *WorkflowServiceSuite) TestConcurrentUploads() {
	t := s.createPurchase(nil)
	identity := s.condition(t.ID, "identity-verification")

	const callers = 8
	docs := make([]*models.TransactionDocument, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs[i], errs[i] = s.service.UploadDocument(s.ctx, service.UploadInput{
				TransactionID: t.ID, ConditionID: &identity.ID, File: pdf("passport.pdf"),
			})
		}()
	}
	wg.Wait()

	stored := 0
	for i, err := range errs {
		if err != nil {
			s.Equal(dErrors.CodeDocumentInvalidState, dErrors.CodeOf(err))
			continue
		}
		stored++
		s.NotNil(docs[i])
	}
	s.Positive(stored)

	chain, err := s.service.DocumentVersions(s.ctx, docs[firstStored(errs)].ID)
	s.Require().NoError(err)
	s.Len(chain, stored)
	s.NoError(models.CheckVersionChain(chain))
	s.Equal(stored, s.activityTypes(t.ID)[models.ActivityDocumentUploaded])
}

func firstStored(errs []error) int {
	for i, err := range errs {
		if err == nil {
			return i
		}
	}
	return 0
}

func (s *WorkflowServiceSuite) TestValidateRacesReject() {
	t := s.createPurchase(nil)
	identity := s.condition(t.ID, "identity-verification")
	doc := s.uploadFor(t.ID, identity)

	var validateErr, rejectErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, validateErr = s.service.ValidateDocument(s.ctx, doc.ID)
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = s.service.RejectDocument(s.ctx, doc.ID, "Blurry")
	}()
	wg.Wait()

	s.Require().True((validateErr == nil) != (rejectErr == nil), "exactly one decision applies")

	chain, err := s.service.DocumentVersions(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(chain, 1)
	types := s.activityTypes(t.ID)
	if validateErr == nil {
		s.requireCode(rejectErr, dErrors.CodeDocumentInvalidState)
		s.Equal(models.DocumentStatusValidated, chain[0].Status)
		s.False(s.condition(t.ID, "identity-verification").IsOpen())
		s.Equal(0, types[models.ActivityDocumentRejected])
		return
	}
	s.requireCode(validateErr, dErrors.CodeDocumentInvalidState)
	s.Equal(models.DocumentStatusRejected, chain[0].Status)
	s.True(s.condition(t.ID, "identity-verification").IsOpen())
	s.Equal(0, types[models.ActivityDocumentValidated])
}

func (s *WorkflowServiceSuite) TestUploadDocument() {
	t := s.createPurchase(nil)

	s.Run("unbound documents need a category and chain by it", func() {
		_, err := s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, File: pdf("misc.pdf")})
		s.requireCode(err, dErrors.CodeValidation)

		first, err := s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: pdf("mandate.pdf")})
		s.Require().NoError(err)
		s.Nil(first.ConditionID)
		s.Equal(1, first.Version)

		second, err := s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: pdf("mandate-signed.pdf")})
		s.Require().NoError(err)
		s.Equal(2, second.Version)
		s.Equal(first.ID, *second.ParentID)
	})

	s.Run("boundary checks reject bad files", func() {
		big := pdf("huge.pdf")
		big.Size = models.DefaultMaxDocumentBytes + 1
		_, err := s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: big})
		s.requireCode(err, dErrors.CodeFileTooLarge)

		exe := models.FileMetadata{URL: "https://files.example/setup.exe", Name: "setup.exe", Size: 10, MimeType: "application/x-msdownload"}
		_, err = s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: exe})
		s.requireCode(err, dErrors.CodeFileBadFormat)

		renamed := pdf("scan.png")
		_, err = s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: renamed})
		s.requireCode(err, dErrors.CodeFileBadFormat)
	})

	docs, err := s.service.ListDocuments(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Len(docs, 2)
}

func (s *WorkflowServiceSuite) TestUploadPlanLimit() {
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	s.Run("reserves before storing", func() {
		plan := mocks.NewMockPlanLimiter(ctrl)
		s.service = s.newService(service.WithPlanLimiter(plan))
		t := s.createPurchase(nil)

		plan.EXPECT().ReserveUpload(gomock.Any(), s.owner).Return(nil)
		s.uploadFor(t.ID, s.condition(t.ID, "identity-verification"))
	})

	s.Run("a refused reservation stores nothing", func() {
		plan := mocks.NewMockPlanLimiter(ctrl)
		s.service = s.newService(service.WithPlanLimiter(plan))
		t := s.createPurchase(nil)

		plan.EXPECT().ReserveUpload(gomock.Any(), s.owner).
			Return(dErrors.New(dErrors.CodePlanLimitExceeded, "monthly upload limit reached"))
		_, err := s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: pdf("mandate.pdf")})
		s.requireCode(err, dErrors.CodePlanLimitExceeded)

		docs, err := s.service.ListDocuments(s.ctx, t.ID)
		s.Require().NoError(err)
		s.Empty(docs)
	})

	s.Run("a failed upload releases its reservation", func() {
		s.service = s.newService()
		t := s.createPurchase(nil)
		v1 := s.uploadFor(t.ID, s.condition(t.ID, "identity-verification"))
		_, err := s.service.ReplaceDocument(s.ctx, v1.ID, pdf("v2.pdf"))
		s.Require().NoError(err)

		plan := mocks.NewMockPlanLimiter(ctrl)
		s.service = s.newService(service.WithPlanLimiter(plan))
		gomock.InOrder(
			plan.EXPECT().ReserveUpload(gomock.Any(), s.owner).Return(nil),
			plan.EXPECT().ReleaseUpload(gomock.Any(), s.owner).Return(errors.New("redis down")),
		)
		_, err = s.service.ReplaceDocument(s.ctx, v1.ID, pdf("v3.pdf"))
		s.requireCode(err, dErrors.CodeDocumentInvalidState)
	})

	s.Run("boundary failures never reach the plan", func() {
		plan := mocks.NewMockPlanLimiter(ctrl)
		s.service = s.newService(service.WithPlanLimiter(plan))
		t := s.createPurchase(nil)

		bad := pdf("scan.gif")
		bad.MimeType = "image/gif"
		_, err := s.service.UploadDocument(s.ctx, service.UploadInput{TransactionID: t.ID, Category: "mandate", File: bad})
		s.requireCode(err, dErrors.CodeFileBadFormat)
	})
}
