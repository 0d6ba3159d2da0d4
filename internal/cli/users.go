package cli

import (
	"github.com/spf13/cobra"

	"github.com/vladimiradmaev/glucose-guide/internal/domain"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/services"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Doctors, patients and their links",
	}
	cmd.AddCommand(
		newUsersRegisterCmd(),
		newUsersGetCmd(),
		newUsersListCmd(),
		newUsersLinkCmd(),
		newUsersTelegramCmd(),
	)
	return cmd
}

func newUsersRegisterCmd() *cobra.Command {
	var (
		in       services.RegisterUserInput
		role     string
		chatID   int64
		doctorID uint
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a doctor or a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Role = domain.Role(role)
			in.DoctorID = doctorID
			if cmd.Flags().Changed("telegram-chat") {
				in.TelegramChatID = &chatID
			}
			return Run(cmd, func(s *session) error {
				user, err := s.app.Users.RegisterUser(s.ctx, in)
				if err != nil {
					return err
				}
				return s.print(user)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.NationalID, "national-id", "", "11 digit national id")
	f.StringVar(&in.FirstName, "first-name", "", "First name")
	f.StringVar(&in.LastName, "last-name", "", "Last name")
	f.StringVar(&in.Email, "email", "", "E-mail address")
	f.StringVar(&role, "role", string(domain.RolePatient), "doctor or patient")
	f.StringVar(&in.Gender, "gender", "", "Gender")
	f.StringVar(&in.BirthDate, "birth-date", "", "Birth date as 02.01.2006 or 2006-01-02")
	f.Int64Var(&chatID, "telegram-chat", 0, "Telegram chat id for notifications")
	f.UintVar(&doctorID, "doctor", 0, "Doctor that follows the new patient")
	return cmd
}

func newUsersGetCmd() *cobra.Command {
	var (
		id         uint
		nationalID string
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user by id or national id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == 0) == (nationalID == "") {
				return apperrors.NewValidationError("exactly one of --id and --national-id is required")
			}
			return Run(cmd, func(s *session) error {
				var (
					user *domain.User
					err  error
				)
				if id != 0 {
					user, err = s.app.Users.GetUser(s.ctx, id)
				} else {
					user, err = s.app.Users.GetUserByNationalID(s.ctx, nationalID)
				}
				if err != nil {
					return err
				}
				return s.print(user)
			})
		},
	}
	cmd.Flags().UintVar(&id, "id", 0, "User id")
	cmd.Flags().StringVar(&nationalID, "national-id", "", "National id")
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var (
		role     string
		doctorID uint
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List doctors, all patients, or the patients of one doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, func(s *session) error {
				var (
					out []domain.User
					err error
				)
				switch domain.Role(role) {
				case domain.RoleDoctor:
					out, err = s.app.Users.Doctors(s.ctx)
				case domain.RolePatient:
					out, err = s.app.Users.Patients(s.ctx, doctorID)
				default:
					return apperrors.NewValidationError("--role must be doctor or patient")
				}
				if err != nil {
					return err
				}
				return s.print(out)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RolePatient), "doctor or patient")
	cmd.Flags().UintVar(&doctorID, "doctor", 0, "Only patients of this doctor")
	return cmd
}

func newUsersLinkCmd() *cobra.Command {
	var doctorID, patientID uint
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Let a doctor follow a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePatient(patientID); err != nil {
				return err
			}
			return Run(cmd, func(s *session) error {
				if err := s.app.Users.LinkPatient(s.ctx, doctorID, patientID); err != nil {
					return err
				}
				return s.print(map[string]uint{"doctor_id": doctorID, "patient_id": patientID})
			})
		},
	}
	cmd.Flags().UintVar(&doctorID, "doctor", 0, "Doctor id")
	cmd.Flags().UintVarP(&patientID, "patient", "p", 0, "Patient id")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}

func newUsersTelegramCmd() *cobra.Command {
	var (
		userID uint
		chatID int64
	)
	cmd := &cobra.Command{
		Use:   "telegram",
		Short: "Set the Telegram chat a user is notified in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd, func(s *session) error {
				if err := s.app.Users.SetTelegramChat(s.ctx, userID, chatID); err != nil {
					return err
				}
				return s.print(map[string]interface{}{"user_id": userID, "telegram_chat_id": chatID})
			})
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "User id")
	cmd.Flags().Int64Var(&chatID, "chat", 0, "Telegram chat id")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("chat")
	return cmd
}
