package conversation

import (
	"fmt"
	"time"

	"github.com/wolfman30/appointment-agent/internal/dateparse"
)

const (
	replyHelp = "I'm your appointment scheduling assistant. I can help you:\n\n" +
		"• **Book** an appointment: \"Book an appointment on Monday at 2pm\"\n" +
		"• **Reschedule** an appointment: \"Reschedule my appointment on Monday to Tuesday at 3pm\"\n" +
		"• **Cancel** an appointment: \"Cancel my appointment on Wednesday\"\n\n" +
		"How can I help you today?"

	replyAskBookingDate    = "I'd be happy to book an appointment for you. Could you please specify the date? For example, \"January 20th\" or \"next Monday\"."
	replyPastBooking       = "I can't book appointments in the past. Please choose a future date and time."
	replyPastReschedule    = "I can't reschedule to a time in the past. Please choose a future date and time."
	replyUnknownSlot       = "I couldn't find that slot. Could you please select from the available options?"
	replySlotTaken         = "Sorry, that time was just taken. Please pick another time."
	replyAskWhichToMove    = "To reschedule, please tell me which appointment you'd like to move. For example: \"Reschedule my appointment on Monday to Tuesday at 3pm\"."
	replyAskRescheduleWhen = "When would you like to move your appointment to? For example, \"Tuesday at 3pm\"."
	replyAskCancelDate     = "Which appointment would you like to cancel? Please specify the date, for example: \"Cancel my appointment on Monday\" or \"Cancel appointment on January 20th\"."
	replyNothingToConfirm  = "I'm not sure what you'd like to confirm. Could you please provide more details?"
	replyAlternatives      = "The requested time is not available. Here are alternative slots:"

	replyAvailabilityError = "I encountered an error while checking availability. Please try again."
	replyBookingError      = "I encountered an error booking the selected slot. Please try again."
	replyRescheduleError   = "I encountered an error while trying to reschedule. Please try again."
	replyCancelError       = "I encountered an error while cancelling the appointment. Please try again."
	replyUnexpectedError   = "I apologize, but I encountered an error processing your request. Please try again."
)

func replyAskTime(date time.Time) string {
	return fmt.Sprintf("Great! I can see you want to book for %s. What time would you prefer? For example, \"at 2pm\" or \"at 10:30am\".", dateparse.FormatDate(date))
}

func replyAskRescheduleTime(date time.Time) string {
	return fmt.Sprintf("What time on %s would you like to move your appointment to?", dateparse.FormatDate(date))
}

func replyBookingAlternatives(date time.Time) string {
	return fmt.Sprintf("The requested time is not available. Here are the next available slots for %s:", dateparse.FormatDate(date))
}

func replyNoSlots(date time.Time) string {
	return fmt.Sprintf("I'm sorry, but there are no available slots on %s. Would you like to try a different date?", dateparse.FormatDate(date))
}

func replyNotFound(date time.Time) string {
	return fmt.Sprintf("I couldn't find an appointment on %s. Please check the date and try again.", dateparse.FormatDate(date))
}

func replyFoundForReschedule(start time.Time) string {
	return fmt.Sprintf("I found your appointment on %s. When would you like to reschedule it to?", dateparse.FormatDateTime(start))
}

func replyConfirmBooking(start time.Time) string {
	return fmt.Sprintf("%s is available. Shall I book it? Reply \"yes\" to confirm.", dateparse.FormatDateTime(start))
}

func replyBooked(start time.Time, code string) string {
	return fmt.Sprintf("**Appointment Confirmed!**\n\n**Date:** %s\n**Booking code:** %s\n\nYour appointment has been successfully booked. You'll receive a confirmation email shortly.",
		dateparse.FormatDateTime(start), code)
}

func replyRescheduled(oldStart, newStart time.Time) string {
	return fmt.Sprintf("**Appointment Rescheduled!**\n\n**New Time:** %s\n\nYour appointment has been moved from %s.",
		dateparse.FormatDateTime(newStart), dateparse.FormatDateTime(oldStart))
}

func replyCancelled(start time.Time) string {
	return fmt.Sprintf("**Appointment Cancelled**\n\nYour appointment on %s has been cancelled. A confirmation email has been sent.",
		dateparse.FormatDateTime(start))
}
