package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqcontracts "omniops/contracts/mq"
	"omniops/internal/formbuilder"
	"omniops/internal/model"
	"omniops/pkg/apperr"
)

type formFixture struct {
	svc    *FormService
	drafts *fakeDrafts
	store  *fakeFormStore
	cache  *memFormCache
	pub    *recordingPublisher
}

func newFormFixture() *formFixture {
	f := &formFixture{
		drafts: newFakeDrafts(),
		store:  newFakeFormStore(),
		cache:  newMemFormCache(),
		pub:    &recordingPublisher{},
	}
	f.svc = NewFormService(f.drafts, f.store, f.cache, f.pub, zap.NewNop())
	return f
}

func TestDraftLifecycle(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	draft, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	b, err := f.svc.AddField(ctx, draft.ID, model.FieldText)
	require.NoError(t, err)
	b, err = f.svc.AddField(ctx, draft.ID, model.FieldCheckbox)
	require.NoError(t, err)
	require.Len(t, b.Fields, 2)
	assert.Equal(t, formbuilder.PlaceholderLabel, b.Fields[0].Label)

	first, second := b.Fields[0].ID, b.Fields[1].ID
	_, err = f.svc.UpdateLabel(ctx, draft.ID, first, "Name")
	require.NoError(t, err)
	b, err = f.svc.RemoveField(ctx, draft.ID, second)
	require.NoError(t, err)
	require.Len(t, b.Fields, 1)

	reloaded, err := f.svc.GetDraft(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Field{{ID: first, Label: "Name", Type: model.FieldText}}, reloaded.Fields)

	form, err := f.svc.SaveDraft(ctx, draft.ID, "  Contact us ")
	require.NoError(t, err)
	assert.Equal(t, "Contact us", form.Title)
	assert.Len(t, form.Fields, 1)

	_, err = f.svc.GetDraft(ctx, draft.ID)
	assert.Equal(t, apperr.KindNotFound, kindOf(err), "draft removed after save")

	cached, ok := f.cache.Get(ctx, form.ID)
	require.True(t, ok)
	assert.Equal(t, form.Title, cached.Title)
	assert.Equal(t, []string{mqcontracts.RoutingFormSaved}, f.pub.keys())
}

func TestSaveDraft_EmptyTitleNeverPersists(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	draft, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)
	_, err = f.svc.AddField(ctx, draft.ID, model.FieldTextarea)
	require.NoError(t, err)

	for _, title := range []string{"", "   "} {
		_, err = f.svc.SaveDraft(ctx, draft.ID, title)
		require.Error(t, err)
		appErr := apperr.Classify(err)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Equal(t, "Please name your form", appErr.Message)
	}
	assert.Equal(t, 0, f.store.inserts)
	assert.Empty(t, f.pub.keys())

	_, err = f.svc.GetDraft(ctx, draft.ID)
	assert.NoError(t, err, "draft kept for another attempt")
}

func TestDraftEdits_ErrorMapping(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	draft, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	_, err = f.svc.AddField(ctx, draft.ID, "date")
	assert.ErrorIs(t, err, formbuilder.ErrUnknownFieldType)
	assert.Equal(t, apperr.KindValidation, kindOf(err))

	_, err = f.svc.UpdateLabel(ctx, draft.ID, "missing", "x")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))

	_, err = f.svc.AddField(ctx, "no-such-draft", model.FieldText)
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}

func TestSaveDraft_StoreFailureKeepsDraft(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()
	draft, err := f.svc.CreateDraft(ctx)
	require.NoError(t, err)

	f.store.err = errStoreDown
	_, err = f.svc.SaveDraft(ctx, draft.ID, "Survey")
	assert.Equal(t, apperr.KindActionable, kindOf(err))

	_, err = f.svc.GetDraft(ctx, draft.ID)
	assert.NoError(t, err)
}

func TestGetForm_UsesCacheThenStore(t *testing.T) {
	f := newFormFixture()
	ctx := context.Background()

	saved, err := f.store.Insert(ctx, "Feedback", nil)
	require.NoError(t, err)

	form, err := f.svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Feedback", form.Title)
	assert.Equal(t, 1, f.store.gets)

	_, err = f.svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.gets, "second read served from cache")

	_, err = f.svc.Get(ctx, "11111111-0000-0000-0000-999999999999")
	assert.Equal(t, apperr.KindNotFound, kindOf(err))
}
