package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/timeutil"
)

func newPatientsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patients",
		Aliases: []string{"patient"},
		Short:   "Work with patient records",
		Long:    `List and create patient records through the proxy's OpenEMR connection.`,
	}

	cmd.AddCommand(newPatientsListCommand())
	cmd.AddCommand(newPatientsCreateCommand())

	return cmd
}

func newPatientsListCommand() *cobra.Command {
	var (
		fname string
		lname string
		dob   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List patients, optionally filtered by name or date of birth",
		Long: `List patient records from the EMR.

Examples:
  # All patients the credential can see
  emrctl patients list

  # Filter by last name
  emrctl patients list --lname Hopper

  # Filter by full name and date of birth
  emrctl patients list --fname Grace --lname Hopper --dob 1906-12-09`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx := getCliContext(cmd)

			up, err := connectUpstream(cliCtx)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), up.Config.OpenEMR.Timeout())
			defer cancel()

			patients, err := up.Patients.List(ctx, openemr.PatientQuery{
				Fname: fname,
				Lname: lname,
				DOB:   dob,
			})
			if err != nil {
				return fmt.Errorf("listing patients: %w", err)
			}

			if len(patients) == 0 {
				fmt.Println("No patients matched.")
				return nil
			}

			return printMarkdown(cmd, patientsTable(patients))
		},
	}

	cmd.Flags().StringVar(&fname, "fname", "", "Filter by first name")
	cmd.Flags().StringVar(&lname, "lname", "", "Filter by last name")
	cmd.Flags().StringVar(&dob, "dob", "", "Filter by date of birth (YYYY-MM-DD)")

	return cmd
}

// patientsTable renders the roster as a markdown table
func patientsTable(patients []openemr.Patient) string {
	var md strings.Builder
	fmt.Fprintf(&md, "# Patients (%d)\n\n", len(patients))
	md.WriteString("| PID | Name | DOB | Age | Sex | City |\n")
	md.WriteString("|-----|------|-----|-----|-----|------|\n")

	for _, p := range patients {
		name := strings.TrimSpace(p.Lname + ", " + p.Fname)
		age := "?"
		if years := timeutil.AgeFromString(p.DOB); years >= 0 {
			age = fmt.Sprintf("%d", years)
		}
		city := p.City
		if city != "" && p.State != "" {
			city += ", " + p.State
		}
		fmt.Fprintf(&md, "| %s | %s | %s | %s | %s | %s |\n",
			p.Pid.String(), name, p.DOB, age, p.Sex, city)
	}

	return md.String()
}

func newPatientsCreateCommand() *cobra.Command {
	var patient openemr.NewPatient

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new patient",
		Long: `Create a patient record in the EMR.

Example:
  emrctl patients create --fname Grace --lname Hopper --dob 1906-12-09 --sex Female`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := patient.Validate(); err != nil {
				return err
			}

			cliCtx := getCliContext(cmd)

			up, err := connectUpstream(cliCtx)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), up.Config.OpenEMR.Timeout())
			defer cancel()

			pid, err := up.Patients.Create(ctx, patient)
			if err != nil {
				return fmt.Errorf("creating patient: %w", err)
			}

			fmt.Printf("✓ Patient created (pid %s)\n", pid)
			return nil
		},
	}

	cmd.Flags().StringVar(&patient.Fname, "fname", "", "First name")
	cmd.Flags().StringVar(&patient.Mname, "mname", "", "Middle name")
	cmd.Flags().StringVar(&patient.Lname, "lname", "", "Last name")
	cmd.Flags().StringVar(&patient.DOB, "dob", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&patient.Sex, "sex", "", "Sex")
	cmd.Flags().StringVar(&patient.Street, "street", "", "Street address")
	cmd.Flags().StringVar(&patient.City, "city", "", "City")
	cmd.Flags().StringVar(&patient.State, "state", "", "State")
	cmd.Flags().StringVar(&patient.PostalCode, "postal-code", "", "Postal code")
	cmd.Flags().StringVar(&patient.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&patient.Email, "email", "", "Email address")
	cmd.MarkFlagRequired("fname")
	cmd.MarkFlagRequired("lname")
	cmd.MarkFlagRequired("dob")
	cmd.MarkFlagRequired("sex")

	return cmd
}
