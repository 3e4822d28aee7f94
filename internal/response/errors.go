package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrNotFound             ErrCode = "NOT_FOUND"
	ErrIneligible           ErrCode = "INELIGIBLE"
	ErrNotYetOpen           ErrCode = "NOT_YET_OPEN"
	ErrClosed               ErrCode = "CLOSED"
	ErrAttemptLimitReached  ErrCode = "ATTEMPT_LIMIT_REACHED"
	ErrExpiredAutoSubmitted ErrCode = "EXPIRED_AUTO_SUBMITTED"
	ErrAlreadySubmitted     ErrCode = "ALREADY_SUBMITTED"
	ErrStoreConflict        ErrCode = "STORE_CONFLICT"
	ErrGradingUnavailable   ErrCode = "GRADING_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrIneligible:
		return "Anda tidak termasuk peserta ujian ini."
	case ErrNotYetOpen:
		return "Ujian ini belum dibuka."
	case ErrClosed:
		return "Ujian ini sudah ditutup."
	case ErrAttemptLimitReached:
		return "Batas jumlah percobaan ujian telah tercapai."
	case ErrExpiredAutoSubmitted:
		return "Waktu ujian telah habis. Jawaban Anda sudah dikumpulkan otomatis."
	case ErrAlreadySubmitted:
		return "Percobaan ujian ini sudah dikumpulkan."
	case ErrStoreConflict:
		return "Terjadi konflik penyimpanan. Silakan coba lagi."
	case ErrGradingUnavailable:
		return "Penilaian sedang tidak tersedia. Silakan coba lagi."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
