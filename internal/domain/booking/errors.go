package booking

import (
	"errors"
	"fmt"
	"time"
)

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound         = errors.New("予約が見つかりません")
	ErrInvalidTimeRange        = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrCapacityExceeded        = errors.New("枠の収容人数を超えています")
	ErrInvalidStatusTransition = errors.New("現在のステータスでは実行できない操作です")
	ErrOrgNameInvalid          = errors.New("組織名は2文字以上100文字以下です")
	ErrStoreNameInvalid        = errors.New("店舗名は2文字以上100文字以下です")
	ErrCustomerNameInvalid     = errors.New("顧客名は2文字以上100文字以下です")
	ErrPhoneNumberInvalid      = errors.New("電話番号は10文字以上15文字以下です")
	ErrGuestsCountInvalid      = errors.New("人数は1以上100以下です")
	ErrNotesTooLong            = errors.New("備考は500文字以下です")
	ErrActorInvalid            = errors.New("操作者は2文字以上100文字以下です")
)

// CapacityExceededError は収容人数を超えた枠の情報を持つ
type CapacityExceededError struct {
	SlotStart time.Time
	Reserved  int
	Requested int
	Capacity  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%s: slot=%s reserved=%d requested=%d capacity=%d",
		ErrCapacityExceeded.Error(), e.SlotStart.UTC().Format(time.RFC3339), e.Reserved, e.Requested, e.Capacity)
}

// Is は errors.Is(err, ErrCapacityExceeded) を成立させる
func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
