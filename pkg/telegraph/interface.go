package telegraph

import "context"

// ClientAPI defines the methods required to interact with Telegraph.
// It mirrors the concrete client so it can be mocked in tests.
type ClientAPI interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*Account, error)
	EditAccountInfo(ctx context.Context, req EditAccountInfoRequest) (*Account, error)
	GetAccountInfo(ctx context.Context, req GetAccountInfoRequest) (*Account, error)
	RevokeAccessToken(ctx context.Context, req RevokeAccessTokenRequest) (*Account, error)
	CreatePage(ctx context.Context, req CreatePageRequest) (*Page, error)
	EditPage(ctx context.Context, req EditPageRequest) (*Page, error)
	GetPage(ctx context.Context, req GetPageRequest) (*Page, error)
	GetPageList(ctx context.Context, req GetPageListRequest) (*PageList, error)
	GetViews(ctx context.Context, req GetViewsRequest) (*PageViews, error)
	Upload(ctx context.Context, targets ...string) (*UploadResult, error)
}
