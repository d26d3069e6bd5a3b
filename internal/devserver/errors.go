package devserver

import (
	"fmt"
	"net/http"
)

// Error is a business failure with the backend's status and code.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func newError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

var (
	errInvalidSession   = newError(http.StatusUnauthorized, "S001", "유효하지 않은 세션입니다.")
	errInvalidOwner     = newError(http.StatusUnauthorized, "O001", "점주 인증이 필요합니다.")
	errForbiddenStore   = newError(http.StatusForbidden, "O002", "해당 매장에 대한 권한이 없습니다.")
	errBadRequest       = newError(http.StatusBadRequest, "C001", "요청 값이 올바르지 않습니다.")
	errStoreNotFound    = newError(http.StatusNotFound, "ST001", "매장을 찾을 수 없습니다.")
	errCardNotFound     = newError(http.StatusNotFound, "SC002", "활성화된 스탬프 카드가 없습니다.")
	errDuplicateRequest = newError(http.StatusConflict, "IR001", "이미 처리된 요청입니다.")
	errIssuanceNotFound = newError(http.StatusNotFound, "IR002", "적립 요청을 찾을 수 없습니다.")
	errIssuanceDone     = newError(http.StatusConflict, "IR003", "이미 처리된 요청입니다.")
	errIssuanceExpired  = newError(http.StatusGone, "IR004", "만료된 요청입니다.")
	errStepUpRequired   = newError(http.StatusForbidden, "RD001", "리워드 사용을 위해 OTP 재인증이 필요합니다.")
	errDuplicateRedeem  = newError(http.StatusConflict, "RD006", "이미 처리된 요청입니다.")
	errRewardNotFound   = newError(http.StatusNotFound, "RD002", "리워드를 찾을 수 없습니다.")
	errRewardNotOwned   = newError(http.StatusForbidden, "RD003", "본인의 리워드만 사용할 수 있습니다.")
	errRewardUnusable   = newError(http.StatusConflict, "RD004", "이미 사용되었거나 만료된 리워드입니다.")
	errRewardExpired    = newError(http.StatusGone, "RD005", "만료된 리워드입니다.")
	errSessionNotFound  = newError(http.StatusNotFound, "RD007", "사용 세션을 찾을 수 없습니다.")
	errSessionExpired   = newError(http.StatusGone, "RD008", "사용 세션이 만료되었습니다.")
	errMigrationOpen    = newError(http.StatusConflict, "M001", "이미 이전 요청을 제출하셨습니다.")
	errMigrationMissing = newError(http.StatusNotFound, "M002", "마이그레이션 요청을 찾을 수 없습니다.")
	errMigrationDone    = newError(http.StatusConflict, "M003", "이미 처리된 요청입니다.")
	errMigrationCount   = newError(http.StatusBadRequest, "M004", "승인 개수가 올바르지 않습니다.")
)
