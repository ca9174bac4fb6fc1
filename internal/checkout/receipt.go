package checkout

import (
	"fmt"
	"strings"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/fee"

	"github.com/google/uuid"
)

// LocalReceiptPrefix starts the receipt numbers generated here when the backend issues none.
const LocalReceiptPrefix = "RCPT-"

// NewReceiptID builds the fallback receipt number used when the backend does not issue one.
func NewReceiptID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s%s-%s", LocalReceiptPrefix, now.UTC().Format("20060102-150405"), suffix)
}

func buildReceipt(v domain.Vehicle, res *fee.Result, method domain.PaymentMethod, paid float64,
	resp *domain.CheckoutResponse, now time.Time) *domain.Receipt {
	receiptID := ""
	plate := v.PlateNumber
	vehicleType := v.VehicleType
	if resp != nil {
		receiptID = resp.ReceiptID
		if resp.Vehicle.PlateNumber != "" {
			plate = resp.Vehicle.PlateNumber
		}
		if resp.Vehicle.VehicleType != "" {
			vehicleType = resp.Vehicle.VehicleType
		}
	}
	serverIssued := receiptID != ""
	if !serverIssued {
		receiptID = NewReceiptID(now)
	}
	return &domain.Receipt{
		ReceiptID:        receiptID,
		PlateNumber:      plate,
		VehicleType:      vehicleType,
		CheckInTime:      res.CheckIn,
		CheckOutTime:     res.CheckOut,
		Duration:         res.Duration.Formatted,
		PaymentMethod:    method,
		PaymentAmount:    paid,
		CalculatedAmount: res.Amount,
		Breakdown:        res.Breakdown,
		ServerIssued:     serverIssued,
	}
}
